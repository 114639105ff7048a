package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	logOnce sync.Once
	logOut  *log.Logger
)

// Logger returns the process-wide logger. All structured output (request
// lines, audit events) funnels through it so stdout stays line-oriented JSON.
func Logger() *log.Logger {
	logOnce.Do(func() {
		logOut = log.New(os.Stdout, "", 0)
	})
	return logOut
}

// LogRequest marshals entry to a single JSON line. Entries that cannot be
// marshalled are replaced by a fixed error line rather than dropped.
func LogRequest(entry map[string]any) {
	line, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log entry not serializable"}`)
		return
	}
	Logger().Println(string(line))
}
