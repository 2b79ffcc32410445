package service

import "testing"

func TestResolveEmptyVariantSKU(t *testing.T) {
    tests := []struct {
        in   string
        want string
    }{
        {"LPG12-X", "LPG12-E"},
        {"LPG12-F", "LPG12-E"},
        {"LPG12", "LPG12-E"},
        {"LPG45-X", "LPG45-E"},
        {"  LPG12-X  ", "LPG12-E"},
        {"", ""},
        {"   ", ""},
    }
    for _, tc := range tests {
        if got := ResolveEmptyVariantSKU(tc.in); got != tc.want {
            t.Errorf("ResolveEmptyVariantSKU(%q) = %q, want %q", tc.in, got, tc.want)
        }
    }
}
