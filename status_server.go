package hdckit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
)

const httpTimeoutsMs = 3000

func (hk *HdcKit) statusHandler() http.Handler {
	handler := httprouter.New()
	handler.GET("/sensors", hk.handleSensors)
	handler.GET("/sensors/:kind", hk.handleSensor)

	return handler
}

// StartStatusServer serves sensor states as json on HttpAddr, in background.
func (hk *HdcKit) StartStatusServer() {
	httpTimeout := httpTimeoutsMs * time.Millisecond

	hk.statusServer = &http.Server{
		Addr:              hk.HttpAddr,
		Handler:           hk.statusHandler(),
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	go func() {
		err := hk.statusServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			hk.getLogger().Error("status server stopped", "err", err)
		}
	}()
}

func writeJson(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (hk *HdcKit) handleSensors(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	lastRefresh := hk.lastRefresh()

	states := []EntityState{}
	for _, s := range hk.sensors {
		states = append(states, NewEntityState(s, lastRefresh))
	}

	writeJson(w, states)
}

func (hk *HdcKit) handleSensor(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	for _, s := range hk.sensors {
		if string(s.Kind()) == p.ByName("kind") {
			writeJson(w, NewEntityState(s, hk.lastRefresh()))
			return
		}
	}

	http.Error(w, "sensor not found", http.StatusNotFound)
}
