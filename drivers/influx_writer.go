package drivers

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/pkg/errors"
)

const defaultInfluxMeasurement = "hdc1000"

// InfluxWriter stores sensor readings as points in influxdb v2 bucket.
type InfluxWriter struct {
	Host         string
	Organization string
	Bucket       string
	Measurement  string
	Token        string

	// added to every point, next to "name"
	Tags map[string]string

	Debug bool

	client   influxdb2.Client
	writeApi api.WriteAPIBlocking
	ready    bool
}

func (iw *InfluxWriter) Setup(ctx context.Context) error {
	if len(iw.Measurement) == 0 {
		iw.Measurement = defaultInfluxMeasurement
	}

	iw.client = influxdb2.NewClient(iw.Host, iw.Token)
	ok, err := iw.client.Ping(ctx)
	if err != nil {
		return errors.Wrapf(err, "failed to init InfluxWriter, cannot reach %s", iw.Host)
	}
	if !ok {
		return errors.Errorf("failed to init InfluxWriter, %s not responding", iw.Host)
	}

	iw.writeApi = iw.client.WriteAPIBlocking(iw.Organization, iw.Bucket)
	iw.ready = true
	return nil
}

func (iw *InfluxWriter) IsReady() bool {
	return iw.ready
}

func (iw *InfluxWriter) Close() error {
	iw.ready = false
	if iw.client != nil {
		iw.client.Close()
	}
	return nil
}

func (iw *InfluxWriter) preparePoint(name string, fields map[string]float64, ts time.Time) *write.Point {
	tags := map[string]string{}
	for key, val := range iw.Tags {
		tags[key] = val
	}
	tags["name"] = name

	pointFields := map[string]interface{}{}
	for key, val := range fields {
		pointFields[key] = val
	}

	return influxdb2.NewPoint(iw.Measurement, tags, pointFields, ts)
}

// Write stores fields (kind -> value) as one point tagged with sensor name.
func (iw *InfluxWriter) Write(ctx context.Context, name string, fields map[string]float64, ts time.Time) error {
	if !iw.ready {
		return errors.New("InfluxWriter not ready")
	}
	if len(fields) == 0 {
		return nil
	}

	point := iw.preparePoint(name, fields, ts)
	if iw.Debug {
		log.Debug("writing influx point", "line", write.PointToLineProtocol(point, time.Second))
	}

	err := iw.writeApi.WritePoint(ctx, point)
	if err != nil {
		return errors.Wrapf(err, "failed to write point to bucket %s", iw.Bucket)
	}

	return nil
}
