// Package mmdbtest writes small MaxMind-format databases for tests.
package mmdbtest

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/maxmind/mmdbwriter"
	"github.com/maxmind/mmdbwriter/mmdbtype"
)

// Well-known addresses inside the Fixture networks
const (
	LondonIP = "81.2.69.142"
	MiltonIP = "216.160.83.56"
	TokyoIP  = "2001:218::1"
	// MissingIP is a public address outside every Fixture network
	MissingIP = "8.8.8.8"
)

// City builds a record shaped like a GeoLite2-City entry
func City(city, isoCode, country string, lat, lon float64) mmdbtype.Map {
	return mmdbtype.Map{
		"city": mmdbtype.Map{
			"names": mmdbtype.Map{"en": mmdbtype.String(city)},
		},
		"country": mmdbtype.Map{
			"iso_code": mmdbtype.String(isoCode),
			"names":    mmdbtype.Map{"en": mmdbtype.String(country)},
		},
		"location": mmdbtype.Map{
			"latitude":  mmdbtype.Float64(lat),
			"longitude": mmdbtype.Float64(lon),
		},
	}
}

// Fixture is the default set of networks used across tests
func Fixture() map[string]mmdbtype.Map {
	return map[string]mmdbtype.Map{
		"81.2.69.0/24":    City("London", "GB", "United Kingdom", 51.5142, -0.0931),
		"216.160.83.0/24": City("Milton", "US", "United States", 47.2513, -122.3149),
		"2001:218::/32":   City("Tokyo", "JP", "Japan", 35.68536, 139.75309),
	}
}

// Write writes a database with the given networks and build epoch to path
// The file is written next to path and renamed into place.
func Write(tb testing.TB, path string, buildEpoch int64, networks map[string]mmdbtype.Map) {
	tb.Helper()

	writer, err := mmdbwriter.New(mmdbwriter.Options{
		DatabaseType:            "GeoLite2-City",
		RecordSize:              28,
		BuildEpoch:              buildEpoch,
		IncludeReservedNetworks: true,
	})
	if err != nil {
		tb.Fatalf("failed to create mmdb writer: %v", err)
	}

	for cidr, record := range networks {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			tb.Fatalf("invalid fixture network %s: %v", cidr, err)
		}
		if err := writer.Insert(network, record); err != nil {
			tb.Fatalf("failed to insert %s: %v", cidr, err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".mmdb-*")
	if err != nil {
		tb.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := writer.WriteTo(tmp); err != nil {
		tmp.Close()
		tb.Fatalf("failed to write mmdb: %v", err)
	}
	if err := tmp.Close(); err != nil {
		tb.Fatalf("failed to close temp file: %v", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		tb.Fatalf("failed to move mmdb into place: %v", err)
	}
}

// WriteFixture writes the Fixture database into a fresh temp dir and returns its path
func WriteFixture(tb testing.TB, buildEpoch int64) string {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "GeoLite2-City.mmdb")
	Write(tb, path, buildEpoch, Fixture())
	return path
}
