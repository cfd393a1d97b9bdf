package config // package config loads application configuration from environment variables

import (
    "log"
    "strings"
    "time"

    "github.com/spf13/viper"
)

// Config holds all runtime configuration values.  Each field is bound
// to an environment variable through viper; required values without a
// sane default cause a fatal error at startup.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing
    LeadTimeDays   int    // minimum days between "now" and a bookable slot date
    StoreTimezone  string // IANA name of the single store timezone (e.g. "Europe/Rome")
    RabbitURL      string // AMQP broker URL for booking events (optional)
}

// Load binds environment variables into a Config.  Defaults cover
// everything except the database coordinates and the JWT secret,
// which have no safe fallback.
func Load() Config {
    v := viper.New()
    v.AutomaticEnv()
    v.SetDefault("APP_ENV", "dev")
    v.SetDefault("APP_PORT", "8080")
    v.SetDefault("ACCESS_TOKEN_TTL_MIN", 15)
    v.SetDefault("REFRESH_TOKEN_TTL_DAYS", 30)
    v.SetDefault("BCRYPT_COST", 10)
    v.SetDefault("LEAD_TIME_DAYS", 2)
    v.SetDefault("STORE_TIMEZONE", "Europe/Rome")
    v.SetDefault("RABBITMQ_URL", "")

    cfg := Config{
        Env:            v.GetString("APP_ENV"),
        Port:           v.GetString("APP_PORT"),
        DBUser:         must(v, "DB_USER"),
        DBPass:         v.GetString("DB_PASS"),
        DBHost:         must(v, "DB_HOST"),
        DBPort:         must(v, "DB_PORT"),
        DBName:         must(v, "DB_NAME"),
        JWTSecret:      must(v, "JWT_SECRET"),
        AccessTTLMin:   v.GetInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: v.GetInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     v.GetInt("BCRYPT_COST"),
        LeadTimeDays:   v.GetInt("LEAD_TIME_DAYS"),
        StoreTimezone:  v.GetString("STORE_TIMEZONE"),
        RabbitURL:      v.GetString("RABBITMQ_URL"),
    }
    if cfg.LeadTimeDays < 0 {
        cfg.LeadTimeDays = 0
    }
    return cfg
}

// Location resolves the configured store timezone.  All customer
// facing date math (available dates, lead-time windows) happens in
// this single location; an unknown name falls back to UTC with a
// warning rather than aborting startup.
func (c Config) Location() *time.Location {
    loc, err := time.LoadLocation(c.StoreTimezone)
    if err != nil {
        log.Printf("config: unknown STORE_TIMEZONE %q, falling back to UTC", c.StoreTimezone)
        return time.UTC
    }
    return loc
}

// must retrieves a required variable.  If it is unset or empty the
// application logs a fatal error and exits, mirroring how missing
// configuration is handled everywhere else in this service.
func must(v *viper.Viper, key string) string {
    s := v.GetString(key)
    if strings.TrimSpace(s) == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return s
}
