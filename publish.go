package hdckit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hubertat/hdckit/mqtt"
	"github.com/pkg/errors"
)

type EntityState struct {
	Name  string    `json:"name"`
	Kind  Kind      `json:"kind"`
	State *float64  `json:"state"`
	Unit  string    `json:"unit_of_measurement"`
	Time  time.Time `json:"time"`
}

func NewEntityState(e Entity, ts time.Time) EntityState {
	es := EntityState{
		Name: e.Name(),
		Kind: e.Kind(),
		Unit: e.UnitOfMeasurement(),
		Time: ts,
	}
	if value, ok := e.State(); ok {
		es.State = &value
	}
	return es
}

func (hk *HdcKit) mqttStateTopic(kind Kind) string {
	return fmt.Sprintf("%s/%s/state", hk.MqttTopic, kind)
}

func (hk *HdcKit) InitMqtt(ctx context.Context) (err error) {
	if len(hk.MqttBroker) == 0 {
		err = errors.New("mqtt broker not set")
		return
	}

	mc, err := mqtt.NewMqttClient(hk.MqttBroker, hk.MqttTopic)
	if err != nil {
		err = errors.Wrap(err, "failed to create mqtt client")
		return
	}

	err = mc.Connect(ctx)
	if err != nil {
		err = errors.Wrap(err, "failed to connect to mqtt broker")
		return
	}

	hk.mqttClient = mc
	hk.publisher = mc
	return
}

func (hk *HdcKit) publishMqtt(ts time.Time) error {
	if hk.publisher == nil {
		return nil
	}

	for _, s := range hk.sensors {
		payload, err := json.Marshal(NewEntityState(s, ts))
		if err != nil {
			return errors.Wrapf(err, "failed to marshal %s state", s.Name())
		}

		err = hk.publisher.Publish(hk.mqttStateTopic(s.Kind()), payload)
		if err != nil {
			return err
		}
	}

	return nil
}

func (hk *HdcKit) writeInflux(ctx context.Context, ts time.Time) error {
	if hk.Influx == nil || !hk.Influx.IsReady() {
		return nil
	}

	return hk.Influx.Write(ctx, hk.Name, hk.influxFields(), ts)
}

// influxFields keeps temperature in °C so series do not change when display unit does.
func (hk *HdcKit) influxFields() map[string]float64 {
	fields := map[string]float64{}
	for _, s := range hk.sensors {
		value, ok := s.State()
		if !ok {
			continue
		}
		if s.Kind() == KindTemperature {
			value = s.Celsius()
		}
		fields[string(s.Kind())] = value
	}

	return fields
}
