package mains

import "testing"

func TestTimezoneFrequency(t *testing.T) {
	tests := []struct {
		timezone string
		want     int
	}{
		// 50Hz countries
		{"Europe/London", 50},
		{"Europe/Paris", 50},
		{"Europe/Berlin", 50},
		{"Australia/Sydney", 50},
		{"Asia/Shanghai", 50},
		{"Asia/Tokyo", 50}, // Japan defaults to 50Hz

		// 60Hz countries
		{"America/New_York", 60},
		{"America/Los_Angeles", 60},
		{"America/Chicago", 60},
		{"America/Toronto", 60},
		{"America/Mexico_City", 60},
		{"America/Bogota", 60},    // Colombia
		{"America/Sao_Paulo", 60}, // Brazil
		{"Asia/Seoul", 60},        // South Korea
		{"Asia/Taipei", 60},       // Taiwan
		{"Asia/Manila", 60},       // Philippines

		// Edge cases
		{"UTC", 50},
		{"GMT", 50},
		{"Etc/UTC", 50},
	}

	for _, tt := range tests {
		t.Run(tt.timezone, func(t *testing.T) {
			got := DetectTimezone(tt.timezone).Hz
			if got != tt.want {
				t.Errorf("DetectTimezone(%q).Hz = %d, want %d", tt.timezone, got, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	d := Detect()
	if d.Hz != 50 && d.Hz != 60 {
		t.Errorf("Detect() = %+v, want 50 or 60 Hz", d)
	}
}

func TestDetectTimezone(t *testing.T) {
	d := DetectTimezone("America/Chicago")
	if d.Hz != 60 || d.Fallback || d.Country != "United States" {
		t.Errorf("DetectTimezone(America/Chicago) = %+v", d)
	}
	if got := d.String(); got != "60 Hz (America/Chicago, United States)" {
		t.Errorf("String() = %q", got)
	}

	d = DetectTimezone("Etc/UTC")
	if d.Hz != 50 || !d.Fallback || d.Country != "" {
		t.Errorf("DetectTimezone(Etc/UTC) = %+v", d)
	}
	if got := d.String(); got != "50 Hz (Etc/UTC, default)" {
		t.Errorf("String() = %q", got)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		setting string
		want    float64
		wantErr bool
	}{
		{"off", 0, false},
		{"", 0, false},
		{"50", 50, false},
		{" 60 ", 60, false},
		{"OFF", 0, false},
		{"hum", 0, true},
		{"-50", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			got, _, err := Resolve(tt.setting)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.setting, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.setting, got, tt.want)
			}
		})
	}

	hz, d, err := Resolve("auto")
	if err != nil || (hz != 50 && hz != 60) || d.Hz != int(hz) {
		t.Errorf("Resolve(auto) = %v, %+v, %v", hz, d, err)
	}
}
