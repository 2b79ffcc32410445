package service

import "strings"

// Default return window, in days, for empty-return expectations seeded
// when an exchange order line is allocated to a trip.
const EmptyReturnWindowDays = 30

// Full-variant SKUs map to their empty counterpart by naming
// convention: exchange SKUs carry an "-X" suffix and sale SKUs either a
// "-F" suffix or none; the empty variant replaces the suffix with "-E".
// E.g. "LPG12-X" and "LPG12-F" both resolve to "LPG12-E", and a bare
// "LPG12" resolves to "LPG12-E".
func ResolveEmptyVariantSKU(fullSKU string) string {
    sku := strings.TrimSpace(fullSKU)
    if sku == "" {
        return ""
    }
    for _, suffix := range []string{"-X", "-F"} {
        if strings.HasSuffix(sku, suffix) {
            return strings.TrimSuffix(sku, suffix) + "-E"
        }
    }
    return sku + "-E"
}
