package drivers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

func TestPrepareInfluxPoint(t *testing.T) {
	iw := InfluxWriter{
		Measurement: "climate",
		Tags:        map[string]string{"location": "attic"},
	}

	point := iw.preparePoint("Attic", map[string]float64{"temperature": 23.5, "humidity": 45.3}, time.Unix(1, 0))
	got := write.PointToLineProtocol(point, time.Second)

	for _, want := range []string{"climate,location=attic,name=Attic ", "humidity=45.3", "temperature=23.5", " 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("line protocol mismatch, got:\n%s\nmissing: %q", got, want)
		}
	}

	if _, overwritten := iw.Tags["name"]; overwritten {
		t.Error("preparePoint modified configured tags")
	}
}

func TestInfluxWriterNotReady(t *testing.T) {
	iw := InfluxWriter{}

	err := iw.Write(context.Background(), "x", map[string]float64{"humidity": 1}, time.Now())
	if err == nil {
		t.Error("expected error writing with not ready InfluxWriter")
	}
}
