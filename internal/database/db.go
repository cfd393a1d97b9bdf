package database

import (
    "context"
    "database/sql"
    "fmt"
    "net/url"
    "time"

    _ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.  Slot start and
// end times are stored as wall-clock DATETIME values in the single
// configured store timezone, so the driver is told to parse them in
// that location; date comparisons in the ledger then work on local
// calendar days without further conversion.
func Open(user, pass, host, port, name, tz string) (*sql.DB, error) {
    auth := user
    if pass != "" {
        auth = fmt.Sprintf("%s:%s", user, pass)
    }
    if tz == "" {
        tz = "UTC"
    }
    dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=%s",
        auth, host, port, name, url.QueryEscape(tz))

    db, err := sql.Open("mysql", dsn)
    if err != nil {
        return nil, err
    }

    // Pool settings
    db.SetMaxOpenConns(25)
    db.SetMaxIdleConns(25)
    db.SetConnMaxLifetime(30 * time.Minute)

    // Ping with timeout
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := db.PingContext(ctx); err != nil {
        return nil, err
    }
    return db, nil
}
