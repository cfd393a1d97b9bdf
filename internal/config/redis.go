package config

// This file defines a Redis client constructor for the application.
// Redis backs two optional concerns: caching the public availability
// endpoints and rate limiting the customer self-service lookups.  If
// the connection fails at startup the function returns nil and both
// middlewares degrade to pass-through, because neither concern is
// authoritative for seat accounting.

import (
    "context"
    "crypto/tls"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
    "github.com/spf13/viper"
)

// NewRedisClient instantiates a Redis client using environment variables.
// Supported variables are:
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand (takes precedence if both are set)
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
// The returned client is nil when no server can be reached.
func NewRedisClient() *redis.Client {
    v := viper.New()
    v.AutomaticEnv()
    v.SetDefault("REDIS_DB", 0)

    addr := v.GetString("REDIS_ADDR")
    if host, port := v.GetString("REDIS_HOST"), v.GetString("REDIS_PORT"); host != "" && port != "" {
        addr = host + ":" + port
    }
    if addr == "" {
        addr = "localhost:6379"
    }

    var tlsConf *tls.Config
    if t := v.GetString("REDIS_TLS"); strings.EqualFold(t, "true") || t == "1" {
        tlsConf = &tls.Config{InsecureSkipVerify: true}
    }

    client := redis.NewClient(&redis.Options{
        Addr:      addr,
        Password:  v.GetString("REDIS_PASSWORD"),
        DB:        v.GetInt("REDIS_DB"),
        TLSConfig: tlsConf,
    })
    // Ping the server with a short timeout.  Return nil on failure.
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        return nil
    }
    return client
}
