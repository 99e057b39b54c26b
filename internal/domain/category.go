package domain

// Category is the catalog section a product is listed under.
type Category string

const (
	CategoryCarFrames        Category = "car-frames"
	CategoryCarPosterFrames  Category = "car-poster-frames"
	CategoryHotwheels        Category = "hotwheels"
	CategoryHotwheelBouquets Category = "hotwheel-bouquets"
	CategoryKeychains        Category = "keychains"
	CategoryPhoneCases       Category = "phone-cases"
	CategoryPosters          Category = "posters"
	CategoryTShirts          Category = "t-shirts"
	CategoryValentineGifts   Category = "valentine-gifts"
)

// CategoryOption pairs a category key with its display label.
type CategoryOption struct {
	Value Category `json:"value"`
	Label string   `json:"label"`
}

var categoryOptions = []CategoryOption{
	{Value: CategoryCarFrames, Label: "Car Frames"},
	{Value: CategoryCarPosterFrames, Label: "Car Poster Frames"},
	{Value: CategoryHotwheels, Label: "Hotwheels"},
	{Value: CategoryHotwheelBouquets, Label: "Hotwheel Bouquets"},
	{Value: CategoryKeychains, Label: "Keychains"},
	{Value: CategoryPhoneCases, Label: "Phone Cases"},
	{Value: CategoryPosters, Label: "Posters"},
	{Value: CategoryTShirts, Label: "T-Shirts"},
	{Value: CategoryValentineGifts, Label: "Valentine Gifts"},
}

// CategoryOptions returns the selectable categories in display order.
func CategoryOptions() []CategoryOption {
	out := make([]CategoryOption, len(categoryOptions))
	copy(out, categoryOptions)
	return out
}

// Known reports whether c is one of the enumerated categories.
func (c Category) Known() bool {
	for _, opt := range categoryOptions {
		if opt.Value == c {
			return true
		}
	}
	return false
}

// Label returns the display label, or the raw key for unknown categories.
func (c Category) Label() string {
	for _, opt := range categoryOptions {
		if opt.Value == c {
			return opt.Label
		}
	}
	return string(c)
}
