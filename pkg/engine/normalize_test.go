package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "2125550099", normalizePhone("+1 (212) 555-0099"))
	assert.Equal(t, "5550100", normalizePhone("555-0100"))
	assert.Equal(t, "5550100", normalizePhone("5550100"))
	assert.Equal(t, "", normalizePhone(""))
	assert.Equal(t, "", normalizePhone("123456"))     // too short
	assert.Equal(t, "", normalizePhone("no digits at all"))
	assert.Equal(t, "", normalizePhone("1234567890123456")) // too long
	// trunk prefix dropped only for 11-digit numbers
	assert.Equal(t, "2125550099", normalizePhone("12125550099"))
	assert.Equal(t, "121255500", normalizePhone("121255500"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "admin@example.com", normalizeEmail("  Admin@Example.COM "))
	assert.Equal(t, "", normalizeEmail("bad-email"))
	assert.Equal(t, "", normalizeEmail("@example.com"))
	assert.Equal(t, "", normalizeEmail("user@"))
	assert.Equal(t, "", normalizeEmail(""))
}

func TestEmailDomain(t *testing.T) {
	assert.Equal(t, "example.com", emailDomain("admin@example.com"))
	assert.Equal(t, "", emailDomain("nodomain"))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "100 main st dallas tx", normalizeAddress("100 Main Street,   Dallas, TX."))
	assert.Equal(t, "900 market ave phoenix az", normalizeAddress("900 Market Avenue, Phoenix, AZ"))
	assert.Equal(t, "44 harbor rd houston tx", normalizeAddress("44 Harbor Rd Houston TX"))
	assert.Equal(t, "", normalizeAddress("   ,,,   "))
	assert.Equal(t, "", normalizeAddress(""))
}

func TestNormalizeIP(t *testing.T) {
	assert.Equal(t, "1.2.3.4", normalizeIP(" 1.2.3.4 "))
	assert.Equal(t, "::1", normalizeIP("::1"))
	assert.Equal(t, "", normalizeIP("999.1.2.3"))
	assert.Equal(t, "", normalizeIP("not-an-ip"))
	assert.Equal(t, "", normalizeIP(""))
}

func TestNormalize_EquivalentContactsConverge(t *testing.T) {
	a := Normalize(CarrierRecord{
		CarrierID: "A",
		Phone:     "(555) 100-0001",
		Email:     "Ops@NorthRoute.com",
		Address:   "100 Main Street, Dallas, TX",
		IP:        "10.0.1.1",
	})
	b := Normalize(CarrierRecord{
		CarrierID: "B",
		Phone:     "5551000001",
		Email:     "ops@northroute.com",
		Address:   "100 Main St Dallas TX",
		IP:        "10.0.1.1",
	})
	assert.Equal(t, a[FeaturePhone], b[FeaturePhone])
	assert.Equal(t, a[FeatureEmail], b[FeatureEmail])
	assert.Equal(t, a[FeatureEmailDomain], b[FeatureEmailDomain])
	assert.Equal(t, a[FeatureAddress], b[FeatureAddress])
	assert.Equal(t, a[FeatureIP], b[FeatureIP])
}

func TestNormalize_AllFieldsAbsent(t *testing.T) {
	fs := Normalize(CarrierRecord{CarrierID: "X", LegalName: "Empty Co"})
	assert.Empty(t, fs)
}
