package hdckit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hubertat/hdckit/drivers"
)

type fakePublisher struct {
	messages map[string][]byte
	err      error
}

func (fp *fakePublisher) Publish(topic string, payload []byte) error {
	if fp.err != nil {
		return fp.err
	}
	if fp.messages == nil {
		fp.messages = map[string][]byte{}
	}
	fp.messages[topic] = payload
	return nil
}

func newTestKit(t *testing.T, conditions ...string) (*HdcKit, *drivers.MockClimateSensor, *sleepClock) {
	t.Helper()

	ms := &drivers.MockClimateSensor{Temperature: 23.456, Humidity: 45.27}
	hk := &HdcKit{Name: "Attic", FakeSensor: ms, MonitoredConditions: conditions}
	if len(conditions) == 0 {
		hk.MonitoredConditions = nil
	}
	hk.SetDefaults()

	clk := newSleepClock()
	if err := hk.InitSensors(clk); err != nil {
		t.Fatalf("InitSensors returned error: %v", err)
	}
	ms.ResetCalls()

	return hk, ms, clk
}

func TestInitSensors(t *testing.T) {
	hk, _, _ := newTestKit(t)

	sensors := hk.Sensors()
	assertInts(t, len(sensors), 2)
	assertInts(t, len(hk.GetHkAccessories("test")), 2)

	if sensors[0].Name() != "Attic Temperature" || sensors[1].Name() != "Attic Humidity" {
		t.Errorf("got sensor names %s, %s", sensors[0].Name(), sensors[1].Name())
	}
}

func TestInitSensorsSkipsUnknownCondition(t *testing.T) {
	hk, _, _ := newTestKit(t, "pressure", "Humidity")

	sensors := hk.Sensors()
	assertInts(t, len(sensors), 1)
	if sensors[0].Kind() != KindHumidity {
		t.Errorf("got kind %s", sensors[0].Kind())
	}
}

func TestInitSensorsInvalidConfig(t *testing.T) {
	hk := &HdcKit{FakeSensor: &drivers.MockClimateSensor{}, TemperatureResolution: 8}
	hk.SetDefaults()

	if err := hk.InitSensors(newSleepClock()); err == nil {
		t.Error("expected error for 8 bit temperature resolution")
	}

	hk.TemperatureResolution = 14
	hk.TemperatureUnit = "K"
	if err := hk.InitSensors(newSleepClock()); err == nil {
		t.Error("expected error for kelvin unit")
	}
}

func TestSyncSensors(t *testing.T) {
	hk, ms, clk := newTestKit(t)
	pub := &fakePublisher{}
	hk.publisher = pub
	clk.Add(minTimeBetweenUpdates)

	if err := hk.SyncSensors(context.Background()); err != nil {
		t.Fatalf("SyncSensors returned error: %v", err)
	}

	assertInts(t, ms.CountCalls("read_temperature"), 1)
	assertInts(t, ms.CountCalls("read_humidity"), 1)

	payload, found := pub.messages["hdckit/humidity/state"]
	if !found {
		t.Fatalf("humidity state not published, got topics: %v", pub.messages)
	}

	var es EntityState
	if err := json.Unmarshal(payload, &es); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if es.State == nil {
		t.Fatal("published state is null")
	}
	assertFloats(t, *es.State, 45.3)
	if es.Unit != "%" || es.Name != "Attic Humidity" {
		t.Errorf("published %+v", es)
	}

	if _, found = pub.messages["hdckit/temperature/state"]; !found {
		t.Error("temperature state not published")
	}
}

func TestSyncSensorsReadFailure(t *testing.T) {
	hk, ms, clk := newTestKit(t)
	hk.SyncSensors(context.Background())

	clk.Add(minTimeBetweenUpdates)
	ms.ReadErr = errors.New("nack")

	if err := hk.SyncSensors(context.Background()); err == nil {
		t.Fatal("expected SyncSensors error")
	}

	value, ok := hk.Sensors()[0].State()
	if !ok {
		t.Fatal("previous state lost")
	}
	assertFloats(t, value, 23.5)
}

func TestSyncSensorsPublishFailure(t *testing.T) {
	hk, _, _ := newTestKit(t)
	hk.publisher = &fakePublisher{err: errors.New("broker gone")}

	err := hk.SyncSensors(context.Background())
	if err == nil || !strings.Contains(err.Error(), "broker gone") {
		t.Errorf("got error %v", err)
	}
}

func TestStatusHandler(t *testing.T) {
	hk, _, _ := newTestKit(t)
	hk.SyncSensors(context.Background())
	handler := hk.statusHandler()

	t.Run("all sensors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sensors", nil))

		assertInts(t, rec.Code, http.StatusOK)
		var states []EntityState
		if err := json.Unmarshal(rec.Body.Bytes(), &states); err != nil {
			t.Fatalf("failed to unmarshal body: %v", err)
		}
		assertInts(t, len(states), 2)
	})

	t.Run("single sensor", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sensors/temperature", nil))

		assertInts(t, rec.Code, http.StatusOK)
		var es EntityState
		if err := json.Unmarshal(rec.Body.Bytes(), &es); err != nil {
			t.Fatalf("failed to unmarshal body: %v", err)
		}
		if es.State == nil {
			t.Fatal("state is null")
		}
		assertFloats(t, *es.State, 23.5)
		if es.Unit != TempCelsius {
			t.Errorf("got unit %s", es.Unit)
		}
	})

	t.Run("unknown sensor", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sensors/pressure", nil))

		assertInts(t, rec.Code, http.StatusNotFound)
	})
}

func TestPrintStatus(t *testing.T) {
	hk, _, _ := newTestKit(t, "humidity")

	var before bytes.Buffer
	hk.PrintStatus(&before)
	if !strings.Contains(before.String(), "| Attic Humidity: -") {
		t.Errorf("unexpected status before sync:\n%s", before.String())
	}

	hk.SyncSensors(context.Background())

	var after bytes.Buffer
	hk.PrintStatus(&after)
	if !strings.Contains(after.String(), "| Attic Humidity: 45.3 %") {
		t.Errorf("unexpected status after sync:\n%s", after.String())
	}
}

func TestInfluxFieldsInCelsius(t *testing.T) {
	ms := &drivers.MockClimateSensor{Temperature: 23.456, Humidity: 45.27}
	hk := &HdcKit{Name: "Attic", FakeSensor: ms, TemperatureUnit: TempFahrenheit}
	hk.SetDefaults()
	if err := hk.InitSensors(newSleepClock()); err != nil {
		t.Fatalf("InitSensors returned error: %v", err)
	}

	if fields := hk.influxFields(); len(fields) != 0 {
		t.Errorf("fields written before first update: %v", fields)
	}

	if err := hk.SyncSensors(context.Background()); err != nil {
		t.Fatalf("SyncSensors returned error: %v", err)
	}

	fields := hk.influxFields()
	assertInts(t, len(fields), 2)
	assertFloats(t, fields["temperature"], 23.5)
	assertFloats(t, fields["humidity"], 45.3)

	if state, _ := hk.Sensors()[0].State(); state != 74.3 {
		t.Errorf("display state got %v, want 74.3 °F", state)
	}
}

func TestStartTicker(t *testing.T) {
	hk, ms, clk := newTestKit(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hk.StartTicker(ctx, minTimeBetweenUpdates)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for ms.CountCalls("read_temperature") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("ticker did not sync sensors")
		}
		clk.Add(minTimeBetweenUpdates)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("StartTicker did not return after context cancel")
	}
}
