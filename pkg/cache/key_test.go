package cache

import (
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "product listing page",
			key:  Key{Endpoint: "/api/v1/produits/", Page: 3, Size: 500},
			want: "prixnc:api/v1/produits:page=3:size=500",
		},
		{
			name: "first page",
			key:  Key{Endpoint: "/api/v1/produits/", Page: 0, Size: 1000},
			want: "prixnc:api/v1/produits:page=0:size=1000",
		},
		{
			name: "trailing slashes trimmed",
			key:  Key{Endpoint: "api/v1/produits", Page: 1, Size: 50},
			want: "prixnc:api/v1/produits:page=1:size=50",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_Deterministic(t *testing.T) {
	key := Key{Endpoint: "/api/v1/produits/", Page: 7, Size: 200}
	if key.String() != key.String() {
		t.Error("Key.String must be deterministic")
	}
}
