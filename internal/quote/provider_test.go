package quote

import (
	"testing"
)

func TestInferExchange(t *testing.T) {
	tests := []struct {
		code    string
		want    string
		wantErr bool
	}{
		{"600000", "sh600000", false},
		{"688001", "sh688001", false},
		{"000001", "sz000001", false},
		{"300750", "sz300750", false},
		{"123456", "", true},
		{"60000", "", true},
		{"6000001", "", true},
	}

	for _, tt := range tests {
		got, err := inferExchange(tt.code)
		if tt.wantErr {
			if err == nil {
				t.Errorf("inferExchange(%q): expected error, got %q", tt.code, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("inferExchange(%q): unexpected error: %v", tt.code, err)
			continue
		}
		if got != tt.want {
			t.Errorf("inferExchange(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestParseSinaPayload(t *testing.T) {
	body := `var hq_str_sh600000="浦发银行,27.55,27.25,26.91,27.55,26.20,26.91,26.92,22114263,589824680,4695,26.91,57590,26.90";`
	price, err := parseSinaPayload(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 26.91 {
		t.Errorf("price = %v, want 26.91", price)
	}
}

func TestParseSinaPayloadMalformed(t *testing.T) {
	cases := []string{
		"",
		`var hq_str_sh600000="";`,
		`var hq_str_sh600000="name,1.0";`,
		`var hq_str_sh600000="name,1.0,2.0,abc";`,
		`var hq_str_sh600000="name,1.0,2.0,0.00";`,
	}
	for _, body := range cases {
		if _, err := parseSinaPayload(body); err == nil {
			t.Errorf("parseSinaPayload(%q): expected error", body)
		}
	}
}

func TestParseTencentPayload(t *testing.T) {
	body := `v_sh600000="1~浦发银行~600000~9.79~9.75~9.76~316962~163947~153014~9.79~165~9.78~463";`
	price, err := parseTencentPayload(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 9.79 {
		t.Errorf("price = %v, want 9.79", price)
	}
}

func TestParseTencentPayloadMalformed(t *testing.T) {
	cases := []string{
		"",
		`v_sh600000="1~name";`,
		`v_sh600000="1~name~600000~notanumber";`,
	}
	for _, body := range cases {
		if _, err := parseTencentPayload(body); err == nil {
			t.Errorf("parseTencentPayload(%q): expected error", body)
		}
	}
}
