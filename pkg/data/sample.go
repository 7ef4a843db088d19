package data

import "github.com/fleetsight/fleetsight/pkg/engine"

// SampleCarriers returns a small deterministic dataset with four
// affiliated pairs sharing phones, emails, addresses, or IPs, one
// standalone carrier, and one carrier with no contact data at all.
// Useful for demos and smoke tests without an FMCSA import.
func SampleCarriers() []engine.CarrierRecord {
	return []engine.CarrierRecord{
		{
			CarrierID: "C001",
			LegalName: "North Route Logistics LLC",
			DOT:       "100001",
			MC:        "200001",
			Phone:     "(555) 100-0001",
			Email:     "ops@northroute.com",
			Address:   "100 Main Street, Dallas, TX",
			IP:        "10.0.1.1",
			Timestamp: "2026-01-01T10:00:00Z",
		},
		{
			CarrierID: "C002",
			LegalName: "NR Transport Services",
			DOT:       "100002",
			MC:        "200002",
			Phone:     "5551000001",
			Email:     "dispatch@northroute.com",
			Address:   "100 Main St Dallas TX",
			IP:        "10.0.1.2",
			Timestamp: "2026-01-02T10:00:00Z",
		},
		{
			CarrierID: "C003",
			LegalName: "Blue Freight Holdings",
			DOT:       "100003",
			MC:        "200003",
			Phone:     "555-100-3333",
			Email:     "ops@bluefreight.net",
			Address:   "44 Harbor Road, Houston, TX",
			IP:        "10.0.1.1",
			Timestamp: "2026-01-03T10:00:00Z",
		},
		{
			CarrierID: "C004",
			LegalName: "Blue Freight TX LLC",
			DOT:       "100004",
			MC:        "200004",
			Phone:     "555-100-4444",
			Email:     "billing@bluefreight.net",
			Address:   "44 Harbor Rd Houston TX",
			IP:        "10.0.3.4",
			Timestamp: "2026-01-04T10:00:00Z",
		},
		{
			CarrierID: "C005",
			LegalName: "Harborline Carriers",
			DOT:       "100005",
			MC:        "200005",
			Phone:     "555-800-0005",
			Email:     "team@harborline.com",
			Address:   "900 Market Avenue, Phoenix, AZ",
			IP:        "172.20.10.5",
			Timestamp: "2026-01-05T10:00:00Z",
		},
		{
			CarrierID: "C006",
			LegalName: "Harborline West",
			DOT:       "100006",
			MC:        "200006",
			Phone:     "555-800-0006",
			Email:     "team@harborline.com",
			Address:   "900 Market Ave Phoenix AZ",
			IP:        "172.20.10.6",
			Timestamp: "2026-01-06T10:00:00Z",
		},
		{
			CarrierID: "C007",
			LegalName: "Summit Bulk Transit",
			DOT:       "100007",
			MC:        "200007",
			Phone:     "555-777-7700",
			Email:     "contact@summitbulk.io",
			Address:   "11 Ridge Road, Reno, NV",
			IP:        "192.168.33.7",
			Timestamp: "2026-01-07T10:00:00Z",
		},
		{
			CarrierID: "C008",
			LegalName: "Summit Bulk Nevada",
			DOT:       "100008",
			MC:        "200008",
			Phone:     "5557777700",
			Email:     "contact@summitbulk.io",
			Address:   "11 Ridge Rd Reno NV",
			IP:        "192.168.33.8",
			Timestamp: "2026-01-08T10:00:00Z",
		},
		{
			CarrierID: "C009",
			LegalName: "Lone Pine Freight",
			DOT:       "100009",
			MC:        "200009",
			Phone:     "555-000-9000",
			Email:     "hello@lonepine.org",
			Address:   "500 Cedar Street, Boise, ID",
			IP:        "203.0.113.9",
			Timestamp: "2026-01-09T10:00:00Z",
		},
		{
			CarrierID: "C010",
			LegalName: "Oakfield Cartage",
			DOT:       "100010",
			MC:        "200010",
			Timestamp: "2026-01-10T10:00:00Z",
		},
	}
}
