package entity

import "testing"

func TestDeriveText(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		row  Row
		want string
	}{
		{"service uses embedding text", Service, Row{EmbeddingText: " dentist, cleaning ", Name: "ignored"}, "dentist, cleaning"},
		{"service empty stays empty", Service, Row{Name: "Clinic"}, ""},
		{"user joins name bio role", User, Row{Name: "Ali", Bio: "plumber", Role: "PROVIDER"}, "Ali plumber PROVIDER"},
		{"user skips blanks", User, Row{Name: "Ali", Role: "DELIVERY"}, "Ali DELIVERY"},
		{"user placeholder", User, Row{}, "provider"},
		{"shop joins name description city", Shop, Row{Name: "Fresh", Description: "fruit", City: "Tanta"}, "Fresh fruit Tanta"},
		{"shop placeholder", Shop, Row{Name: "  "}, "shop"},
		{"product prefers embedding text", Product, Row{EmbeddingText: "red apple", Name: "Apple"}, "red apple"},
		{"product falls back to name description", Product, Row{Name: "Apple", Description: "red"}, "Apple red"},
		{"product placeholder", Product, Row{}, "product"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveText(tt.typ, tt.row); got != tt.want {
				t.Errorf("DeriveText() = %q, want %q", got, tt.want)
			}
		})
	}
}
