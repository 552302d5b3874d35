package domain

import "encoding/json"

// Quota is the per-resource ceiling a plan grants.
type Quota struct {
	MaxAdmins    int
	MaxStaff     int
	MaxCustomers int
	Features     []string
}

var planCatalog = map[Plan]Quota{
	PlanFree: {
		MaxAdmins:    1,
		MaxStaff:     2,
		MaxCustomers: 50,
		Features:     []string{"debts", "payments"},
	},
	PlanBasic: {
		MaxAdmins:    2,
		MaxStaff:     5,
		MaxCustomers: 500,
		Features:     []string{"debts", "payments", "reports"},
	},
	PlanPremium: {
		MaxAdmins:    5,
		MaxStaff:     20,
		MaxCustomers: 5000,
		Features:     []string{"debts", "payments", "reports", "notifications"},
	},
	PlanEnterprise: {
		MaxAdmins:    50,
		MaxStaff:     200,
		MaxCustomers: 100000,
		Features:     []string{"debts", "payments", "reports", "notifications", "export"},
	},
}

// QuotaForPlan resolves plan-derived limits and features.
func QuotaForPlan(plan Plan) (Quota, bool) {
	quota, ok := planCatalog[plan]
	return quota, ok
}

// EncodeFeatures serializes a feature list for the licenses row.
func EncodeFeatures(features []string) []byte {
	if features == nil {
		features = []string{}
	}
	raw, err := json.Marshal(features)
	if err != nil {
		return []byte("[]")
	}
	return raw
}
