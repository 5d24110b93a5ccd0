package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"diagcompare/compare"
	"diagcompare/diagnostics"
	"diagcompare/report"
)

// maxBody caps a compare request; diagnostics blobs are a few KB.
const maxBody = 1 << 20

// CompareRequest is the body of POST /compare.
type CompareRequest struct {
	Previous    string `json:"previous"`
	Current     string `json:"current"`
	ThresholdMS *int   `json:"threshold_ms,omitempty"`
	Format      string `json:"format,omitempty"`
}

type Message struct {
	Msg string
}

func jsonMessageByte(msg string) []byte {
	byteContent, _ := json.Marshal(Message{msg})
	return byteContent
}

// NewHandler returns the routes of the comparison server.
//
//	GET  /healthz
//	POST /compare
func NewHandler(log *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(jsonMessageByte("ok"))
	})

	mux.HandleFunc("/compare", func(w http.ResponseWriter, r *http.Request) {
		handleCompare(w, r, log)
	})

	return mux
}

func handleCompare(w http.ResponseWriter, r *http.Request, log *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		w.Write(jsonMessageByte(r.Method + " - Method not allowed"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil || len(body) > maxBody {
		log.Warn("client error", zap.Error(err), zap.Int("bytes", len(body)))
		w.WriteHeader(http.StatusBadRequest)
		w.Write(jsonMessageByte("Bad Request"))
		return
	}

	var req CompareRequest
	if err := json.Unmarshal(body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write(jsonMessageByte("Bad Request - " + err.Error()))
		return
	}

	threshold := compare.DefaultThresholdMillis
	if req.ThresholdMS != nil {
		threshold = *req.ThresholdMS
	}
	if threshold < 0 {
		w.WriteHeader(http.StatusBadRequest)
		w.Write(jsonMessageByte("threshold_ms must not be negative"))
		return
	}
	format := req.Format
	if format == "" {
		format = report.FormatMarkdown
	}
	if !report.ValidFormat(format) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write(jsonMessageByte("unknown format " + format))
		return
	}

	deltas := compare.Classify(diagnostics.Parse(req.Previous), diagnostics.Parse(req.Current), float64(threshold))

	var out bytes.Buffer
	if err := report.Encode(&out, deltas, format); err != nil {
		log.Error("server error", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		w.Write(jsonMessageByte("Internal server error"))
		return
	}

	switch format {
	case report.FormatMarkdown:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	case report.FormatYAML:
		w.Header().Set("Content-Type", "application/yaml")
	}
	log.Debug("report rendered", zap.Int("metrics", len(deltas)), zap.String("format", format))
	w.Write(out.Bytes())
}
