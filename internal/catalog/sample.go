package catalog

// SampleProducts returns the built-in starter catalog used to seed a new
// owner or an offline session with an empty cache.
func SampleProducts() Products {
	return Products{
		{ID: 1, Name: "Mandarin Orange Chicken", Price: 4.99, Category: Frozen},
		{ID: 2, Name: "Everything But The Bagel Seasoning", Price: 2.99, Category: Pantry},
		{ID: 3, Name: "Cauliflower Gnocchi", Price: 2.69, Category: Frozen},
		{ID: 4, Name: "Dark Chocolate Peanut Butter Cups", Price: 4.49, Category: Snacks},
		{ID: 5, Name: "Organic Carrots", Price: 1.99, Category: Produce},
		{ID: 6, Name: "Unexpected Cheddar Cheese", Price: 5.99, Category: Dairy},
		{ID: 7, Name: "Joe Joes Cookies", Price: 3.49, Category: Snacks},
		{ID: 8, Name: "Organic Spinach", Price: 2.49, Category: Produce},
		{ID: 9, Name: "Orange Chicken Fried Rice", Price: 3.99, Category: Frozen},
		{ID: 10, Name: "Speculoos Cookie Butter", Price: 3.99, Category: Pantry},
		{ID: 11, Name: "Greek Yogurt", Price: 4.99, Category: Dairy},
		{ID: 12, Name: "Mini Ice Cream Cones", Price: 4.49, Category: Frozen},
	}
}
