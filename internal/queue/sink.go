package queue

import (
    "encoding/json"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "sync"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/sports-hall-booking/internal/events"
)

// DefaultLogPath is where consumed events are appended.
var DefaultLogPath = filepath.Join("logs", "appointments.log")

// Sink decodes appointment events and writes them through a dedicated
// logrus logger, one line per event.
type Sink struct {
    mu  sync.Mutex
    out *logrus.Logger
    f   io.Closer
}

// OpenSink creates the directory of path and opens path for appending.
func OpenSink(path string) (*Sink, error) {
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return nil, fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return nil, fmt.Errorf("open log file: %w", err)
    }
    s := NewSink(f)
    s.f = f
    return s, nil
}

// NewSink writes to w.  The caller owns w.
func NewSink(w io.Writer) *Sink {
    out := logrus.New()
    out.SetOutput(w)
    out.SetFormatter(&logrus.TextFormatter{
        DisableColors:    true,
        FullTimestamp:    true,
        TimestampFormat:  time.RFC3339,
        QuoteEmptyFields: true,
    })
    return &Sink{out: out}
}

// Handle decodes one message body and appends it.
func (s *Sink) Handle(body []byte) error {
    var ev events.AppointmentEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" || ev.AppointmentID == 0 {
        return fmt.Errorf("incomplete event %q", ev.ID)
    }
    fields := logrus.Fields{
        "event_id":       ev.ID,
        "appointment_id": ev.AppointmentID,
        "hall_id":        ev.HallID,
        "user_id":        ev.UserID,
        "status":         ev.Status,
        "checked_in":     ev.CheckedIn,
        "start":          ev.Start.Format(time.RFC3339),
        "end":            ev.End.Format(time.RFC3339),
    }
    if ev.PreviousStatus != "" {
        fields["previous_status"] = ev.PreviousStatus
    }

    s.mu.Lock()
    defer s.mu.Unlock()
    s.out.WithTime(ev.OccurredAt).WithFields(fields).Info(ev.Type)
    return nil
}

// Close closes the file opened by OpenSink.
func (s *Sink) Close() error {
    if s.f == nil {
        return nil
    }
    return s.f.Close()
}
