package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFlexString_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    FlexString
		wantErr bool
	}{
		{name: "string", input: `"2026-08-30T10:00:00Z"`, want: "2026-08-30T10:00:00Z"},
		{name: "integer keeps literal", input: `1756550400`, want: "1756550400"},
		{name: "float keeps literal", input: `1756550400.25`, want: "1756550400.25"},
		{name: "null becomes empty", input: `null`, want: ""},
		{name: "object rejected", input: `{"a":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexString
			err := json.Unmarshal([]byte(tt.input), &f)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if f != tt.want {
				t.Errorf("got %q, want %q", f, tt.want)
			}
		})
	}
}

func TestRawReading_Decode(t *testing.T) {
	var readings []RawReading
	doc := `[
		{"site_id": "s1", "timestamp": "t1", "energy_generated_kwh": -10, "energy_consumed_kwh": 5},
		{"site_id": "s2", "timestamp": 1756550400}
	]`
	if err := json.Unmarshal([]byte(doc), &readings); err != nil {
		t.Fatal(err)
	}

	if len(readings) != 2 {
		t.Fatalf("len = %d, want 2", len(readings))
	}
	if readings[0].EnergyGenerated == nil || readings[0].EnergyGenerated.String() != "-10" {
		t.Errorf("EnergyGenerated = %v, want -10", readings[0].EnergyGenerated)
	}
	if readings[1].EnergyGenerated != nil || readings[1].EnergyConsumed != nil {
		t.Error("absent energy fields must decode to nil")
	}
	if readings[1].Timestamp != "1756550400" {
		t.Errorf("Timestamp = %q, want 1756550400", readings[1].Timestamp)
	}
}

func TestSiteRecord_MarshalDecimalsAsStrings(t *testing.T) {
	gen, _ := decimal.NewFromString("120.5")
	cons, _ := decimal.NewFromString("80.25")
	rec := SiteRecord{
		SiteID:          "s1",
		RecordTimestamp: "t1",
		EnergyGenerated: gen,
		EnergyConsumed:  cons,
		NetEnergy:       gen.Sub(cons),
	}

	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	body := string(b)
	if !strings.Contains(body, `"energy_generated_kwh":"120.5"`) {
		t.Errorf("generated not serialized as string: %s", body)
	}
	if !strings.Contains(body, `"net_energy_kwh":"40.25"`) {
		t.Errorf("net not serialized as string: %s", body)
	}
}
