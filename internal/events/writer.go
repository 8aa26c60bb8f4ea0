package events

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"github.com/sirupsen/logrus"
)

// maxOccurrenceFileBytes is the size above which the occurrence file is
// truncated rather than rotated (spec.md §6 "Occurrence stream file
// format").
const maxOccurrenceFileBytes = 10 * 1024 * 1024

// OccurrenceWriter appends Occurrence records as JSON lines to a single
// file, truncating it when it grows past 10 MiB.
type OccurrenceWriter struct {
	mu   sync.Mutex
	path string
	log  *logrus.Entry
}

// NewOccurrenceWriter targets dir/occurrence.json, creating dir if needed.
func NewOccurrenceWriter(dir string, log *logrus.Entry) *OccurrenceWriter {
	return &OccurrenceWriter{path: filepath.Join(dir, "occurrence.json"), log: log}
}

// Write appends one occurrence as a single JSON line. Failures are logged
// as warnings and never returned as fatal to the caller's reconcile path
// (spec.md §7 taxonomy item 5).
func (w *OccurrenceWriter) Write(occ Occurrence) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		w.log.WithError(err).Warn("failed to create occurrence directory")
		return
	}

	if info, err := os.Stat(w.path); err == nil && info.Size() > maxOccurrenceFileBytes {
		w.log.Warn("occurrence file exceeds 10MiB, truncating")
		if err := os.WriteFile(w.path, nil, 0o644); err != nil {
			w.log.WithError(err).Warn("failed to truncate occurrence file")
			return
		}
	}

	line, err := encodeOccurrence(occ)
	if err != nil {
		w.log.WithError(err).Warn("failed to encode occurrence")
		return
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		w.log.WithError(err).Warn("failed to open occurrence file")
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		w.log.WithError(err).Warn("failed to write occurrence")
	}
}

// encodeOccurrence renders occ as a single compact JSON line using
// go-faster/jx's streaming encoder, favoured over encoding/json here
// because the occurrence stream is an append-only hot path written on
// every phase transition and advisor consultation.
func encodeOccurrence(occ Occurrence) ([]byte, error) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(occ.ID) })
		e.Field("protocol_version", func(e *jx.Encoder) { e.Str(occ.ProtocolVersion) })
		e.Field("timestamp", func(e *jx.Encoder) { e.Str(occ.Timestamp.Format(time.RFC3339Nano)) })
		e.Field("source", func(e *jx.Encoder) { e.Str(occ.Source) })
		e.Field("type", func(e *jx.Encoder) { e.Str(occ.Type) })
		e.Field("severity", func(e *jx.Encoder) { e.Str(string(occ.Severity)) })
		e.Field("outcome", func(e *jx.Encoder) { e.Str(string(occ.Outcome)) })
		e.Field("context", func(e *jx.Encoder) { encodeContext(e, occ.Context) })
		if occ.Error != nil {
			e.Field("error", func(e *jx.Encoder) { encodeError(e, *occ.Error) })
		}
		if occ.Data != nil {
			e.Field("data", func(e *jx.Encoder) { encodeAny(e, occ.Data) })
		}
		if occ.Reasoning != "" {
			e.Field("reasoning", func(e *jx.Encoder) { e.Str(occ.Reasoning) })
		}
	})

	out := make([]byte, len(e.Bytes()))
	copy(out, e.Bytes())
	return out, nil
}

func encodeContext(e *jx.Encoder, c OccurrenceContext) {
	e.Obj(func(e *jx.Encoder) {
		if c.Cluster != "" {
			e.Field("cluster", func(e *jx.Encoder) { e.Str(c.Cluster) })
		}
		if c.Namespace != "" {
			e.Field("namespace", func(e *jx.Encoder) { e.Str(c.Namespace) })
		}
		e.Field("correlation_keys", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for k, v := range c.CorrelationKeys {
					e.Field(k, func(e *jx.Encoder) { e.Str(v) })
				}
			})
		})
		e.Field("entities", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, ent := range c.Entities {
					e.Obj(func(e *jx.Encoder) {
						e.Field("kind", func(e *jx.Encoder) { e.Str(ent.Kind) })
						e.Field("id", func(e *jx.Encoder) { e.Str(ent.ID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(ent.Name) })
						e.Field("namespace", func(e *jx.Encoder) { e.Str(ent.Namespace) })
						e.Field("version", func(e *jx.Encoder) { e.Str(ent.Version) })
						e.Field("observed_at", func(e *jx.Encoder) { e.Str(ent.ObservedAt) })
					})
				}
			})
		})
	})
}

func encodeError(e *jx.Encoder, oe OccurrenceError) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(oe.Code) })
		e.Field("what_failed", func(e *jx.Encoder) { e.Str(oe.WhatFailed) })
		if oe.WhyItMatters != "" {
			e.Field("why_it_matters", func(e *jx.Encoder) { e.Str(oe.WhyItMatters) })
		}
		if len(oe.PossibleCauses) > 0 {
			e.Field("possible_causes", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, c := range oe.PossibleCauses {
						e.Str(c)
					}
				})
			})
		}
		if oe.SuggestedFix != "" {
			e.Field("suggested_fix", func(e *jx.Encoder) { e.Str(oe.SuggestedFix) })
		}
	})
}

// encodeAny renders the small, known shape of Occurrence.Data (nested
// string/number/map values produced by BuildPhaseOccurrence) without
// depending on encoding/json's reflection-based encoder.
func encodeAny(e *jx.Encoder, v any) {
	switch val := v.(type) {
	case nil:
		e.Null()
	case string:
		e.Str(val)
	case bool:
		e.Bool(val)
	case int32:
		e.Int32(val)
	case int:
		e.Int(val)
	case *int32:
		if val == nil {
			e.Null()
		} else {
			e.Int32(*val)
		}
	case float64:
		e.Float64(val)
	case map[string]any:
		e.Obj(func(e *jx.Encoder) {
			for k, inner := range val {
				e.Field(k, func(e *jx.Encoder) { encodeAny(e, inner) })
			}
		})
	default:
		e.Null()
	}
}
