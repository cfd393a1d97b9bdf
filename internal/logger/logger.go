// Package logger builds the structured logger shared by the service.
// Every ledger-affecting outcome is logged with slot/order/item fields
// so seat accounting can be audited from the log stream alone.
package logger

import (
    "os"
    "strings"

    "github.com/sirupsen/logrus"
)

// New returns a logrus logger configured from the environment.  In
// "prod" the output is JSON for log shipping; everywhere else a
// human-readable text format with full timestamps is used.  LOG_LEVEL
// overrides the default info level.
func New(env string) *logrus.Logger {
    l := logrus.New()
    l.SetOutput(os.Stdout)

    if strings.EqualFold(env, "prod") {
        l.SetFormatter(&logrus.JSONFormatter{})
    } else {
        l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
    }

    level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
    if err != nil {
        level = logrus.InfoLevel
    }
    l.SetLevel(level)
    return l
}
