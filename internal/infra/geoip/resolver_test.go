package geoip

import (
	"errors"
	"testing"
)

func TestCountryCodeSkipsPrivateAddresses(t *testing.T) {
	r := &Resolver{}

	for _, ip := range []string{"127.0.0.1", "10.0.0.5", "192.168.1.20", "::1"} {
		code, err := r.CountryCode(ip)
		if err != nil {
			t.Fatalf("CountryCode(%q): unexpected error %v", ip, err)
		}
		if code != "" {
			t.Fatalf("CountryCode(%q) = %q, want empty", ip, code)
		}
	}
}

func TestCountryCodeWithoutDatabase(t *testing.T) {
	r := &Resolver{}

	if _, err := r.CountryCode("93.184.216.34"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("CountryCode without database: got %v, want ErrUnavailable", err)
	}
}

func TestCountryCodeRejectsMalformedIP(t *testing.T) {
	r := &Resolver{}

	if _, err := r.CountryCode("not-an-ip"); err == nil {
		t.Fatal("CountryCode accepted malformed address")
	}
}

func TestNewResolverEmptyPath(t *testing.T) {
	r, err := NewResolver("  ")
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	if r != nil {
		t.Fatalf("NewResolver with blank path returned %v, want nil", r)
	}
}
