package catalog

type Category struct {
	ID   string
	Name string
}

type Product struct {
	ID          int
	Name        string
	Price       float64
	Image       string
	Stock       int
	Category    string
	Description string
}

var Categories = []Category{
	{ID: "audio", Name: "Audio"},
	{ID: "computers", Name: "Computers"},
	{ID: "smartphones", Name: "Smartphones"},
	{ID: "gaming", Name: "Gaming"},
	{ID: "accessories", Name: "Accessories"},
}

// Products is the storefront fixture. Order matters: lookups return the
// first hit.
var Products = []Product{
	{
		ID: 1, Name: "Sony WH-1000XM4", Price: 349.99, Stock: 15, Category: "audio",
		Image:       "images/sony-wh-1000xm4.jpg",
		Description: "Premium noise-cancelling headphones with exceptional sound quality",
	},
	{
		ID: 2, Name: "Apple AirPods Pro", Price: 249.99, Stock: 20, Category: "audio",
		Image:       "images/airpods-pro.webp",
		Description: "True wireless earbuds with active noise cancellation",
	},
	{
		ID: 3, Name: "JBL Flip 6", Price: 129.99, Stock: 25, Category: "audio",
		Image:       "images/jbl-flip-6.jpg",
		Description: "Portable waterproof speaker with powerful bass",
	},
	{
		ID: 4, Name: "MacBook Pro M2", Price: 1499.99, Stock: 10, Category: "computers",
		Image:       "images/macbook-pro-m2.jpg",
		Description: "Powerful laptop with Apple M2 chip",
	},
	{
		ID: 5, Name: "Dell XPS 15", Price: 1799.99, Stock: 8, Category: "computers",
		Image:       "images/dell-xps-15.jpg",
		Description: "Premium Windows laptop with 4K display",
	},
	{
		ID: 6, Name: "Custom Gaming PC", Price: 2499.99, Stock: 5, Category: "computers",
		Image:       "images/custom-gaming-pc.jpg",
		Description: "High-end gaming desktop with RTX 4080",
	},
	{
		ID: 7, Name: "iPhone 14 Pro", Price: 999.99, Stock: 15, Category: "smartphones",
		Image:       "images/iphone-14-pro.jpg",
		Description: "Latest iPhone with dynamic island",
	},
	{
		ID: 8, Name: "Samsung S23 Ultra", Price: 1199.99, Stock: 12, Category: "smartphones",
		Image:       "images/samsung-s23-ultra.jpg",
		Description: "Flagship Android phone with S Pen",
	},
	{
		ID: 9, Name: "Google Pixel 7 Pro", Price: 899.99, Stock: 10, Category: "smartphones",
		Image:       "images/pixel-7-pro.jpg",
		Description: "Google's flagship with the best camera software",
	},
	{
		ID: 10, Name: "PS5 Console", Price: 499.99, Stock: 7, Category: "gaming",
		Image:       "images/ps5.jpg",
		Description: "Next-gen gaming console with ultra-fast SSD",
	},
	{
		ID: 11, Name: "Xbox Series X", Price: 499.99, Stock: 6, Category: "gaming",
		Image:       "images/xbox-series-x.jpg",
		Description: "Microsoft's most powerful console",
	},
	{
		ID: 12, Name: "Nintendo Switch OLED", Price: 349.99, Stock: 15, Category: "gaming",
		Image:       "images/switch-oled.jpg",
		Description: "Hybrid console with vibrant OLED screen",
	},
	{
		ID: 13, Name: "Logitech MX Master 3", Price: 99.99, Stock: 30, Category: "accessories",
		Image:       "images/mx-master-3.jpg",
		Description: "Advanced wireless mouse for productivity",
	},
	{
		ID: 14, Name: `Samsung 49" Odyssey G9`, Price: 1299.99, Stock: 4, Category: "accessories",
		Image:       "images/odyssey-g9.jpg",
		Description: "Ultra-wide curved gaming monitor",
	},
	{
		ID: 15, Name: "Keychron Q1", Price: 169.99, Stock: 20, Category: "accessories",
		Image:       "images/keychron-q1.jpg",
		Description: "Premium mechanical keyboard with QMK support",
	},
}

func ByID(id int) (Product, bool) {
	for _, p := range Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

func InCategory(category string) []Product {
	var out []Product
	for _, p := range Products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}
