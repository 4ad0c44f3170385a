package config

import "testing"

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.internal",
		DBPort:     "5433",
		DBUser:     "storefront",
		DBPassword: "secret",
		DBName:     "orders",
		DBSSLMode:  "require",
	}

	want := "host=db.internal port=5433 user=storefront password=secret dbname=orders sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
