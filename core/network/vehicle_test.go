package network

import (
	"math"
	"testing"
)

func validVehicle() Vehicle {
	return Vehicle{
		ID:           "ev1",
		Start:        1,
		End:          1,
		StartingSoC:  40,
		StartingHour: 8,
		SoCFloor:     8,
		SoCCeiling:   50,
		HorizonHours: 18,
		AccelEff:     0.9,
		BrakeEff:     0.6,
	}
}

func TestVehicle_Validate(t *testing.T) {
	n := testNetwork(t)

	if err := validVehicle().Validate(n); err != nil {
		t.Fatalf("valid vehicle rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Vehicle)
	}{
		{"no id", func(v *Vehicle) { v.ID = "" }},
		{"unknown start", func(v *Vehicle) { v.Start = 99 }},
		{"unknown end", func(v *Vehicle) { v.End = 99 }},
		{"floor above ceiling", func(v *Vehicle) { v.SoCFloor = 60 }},
		{"soc below floor", func(v *Vehicle) { v.StartingSoC = 5 }},
		{"soc above ceiling", func(v *Vehicle) { v.StartingSoC = 55 }},
		{"horizon before start", func(v *Vehicle) { v.HorizonHours = 7 }},
		{"bad accel efficiency", func(v *Vehicle) { v.AccelEff = 0 }},
		{"bad brake efficiency", func(v *Vehicle) { v.BrakeEff = 1.5 }},
	}
	for _, tc := range cases {
		v := validVehicle()
		tc.mutate(&v)
		if err := v.Validate(n); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestVehicle_PathEnergy(t *testing.T) {
	v := validVehicle()
	p := Path{
		DistanceAtSpeedKM: 50,
		AvgSpeedKMH:       50,
		PowerAtSpeedKW:    20,
		KineticEnergyKWh:  0.09,
	}
	// cruise 20 kWh, accel 0.09/0.9 = 0.1, recovery 0.09*0.6 = 0.054
	want := 20.0 + 0.1 - 0.054
	if got := v.PathEnergyKWh(p); math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %g kWh, got %g", want, got)
	}
}
