package seeder

func Defaults() []Seeder {
	return []Seeder{
		DemoTenantSeeder{
			Email:      "demo@matchmap.hr",
			Password:   "demo12345",
			TenantName: "Demo Firma",
			TenantSlug: "demo-firma",
		},
	}
}
