package model

// All lists the tables created by AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Site{},
		&Order{},
	}
}
