package storefront

import (
	"strings"

	"github.com/Kariqs/sweet-shop/models"
	"github.com/Kariqs/sweet-shop/utils"
)

// PartitionByCategory splits sweets into chocolates and everything else,
// keeping order.
func PartitionByCategory(sweets []Sweet) (chocolates, others []Sweet) {
	for _, s := range sweets {
		if s.Category == models.CategoryChocolate {
			chocolates = append(chocolates, s)
		} else {
			others = append(others, s)
		}
	}
	return chocolates, others
}

// DisplayImage is the image or glyph a product card shows.
func DisplayImage(s Sweet) utils.ImageView {
	return utils.ResolveImage(s.ImageURL, s.Category)
}

const photoBase = "https://images.unsplash.com/"

type namedPhoto struct {
	keywords []string
	photo    string
}

var namedPhotos = []namedPhoto{
	{[]string{"cheese cake", "cheesecake"}, "photo-1533134486753-c833f0ed4866"},
	{[]string{"chocolate cake"}, "photo-1578985545062-69928b1d9587"},
	{[]string{"gummy bear"}, "photo-1582058091505-f87a2e55a40f"},
	{[]string{"red velvet"}, "photo-1586985289688-ca3cf47d3e6e"},
	{[]string{"strawberry cupcake"}, "photo-1603532648955-039310d9ed75"},
	{[]string{"vanilla cupcake"}, "photo-1426869884541-df7117556757"},
	{[]string{"dark chocolate", "truffle"}, "photo-1548907040-4baa42d10919"},
	{[]string{"milk chocolate bar"}, "photo-1599599810769-bcde5a160d32"},
	{[]string{"rainbow", "candies"}, "photo-1559600630-08c018864142"},
}

var categoryPhotos = map[string]string{
	models.CategoryChocolate: "photo-1511381939415-e44015466834",
	models.CategoryCake:      "photo-1578985545062-69928b1d9587",
	models.CategoryCupcake:   "photo-1587668178277-295251f900ce",
	models.CategoryCandy:     "photo-1499195333224-3ce974eecb47",
}

const fallbackPhoto = "photo-1565958011703-44f9829ba187"

// CatalogPhoto picks the stock photograph the public home page shows for a
// product, by well-known name first and category second.
func CatalogPhoto(name, category string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, np := range namedPhotos {
		for _, kw := range np.keywords {
			if strings.Contains(lower, kw) {
				return photoURL(np.photo)
			}
		}
	}
	if photo, ok := categoryPhotos[category]; ok {
		return photoURL(photo)
	}
	return photoURL(fallbackPhoto)
}

func photoURL(id string) string {
	return photoBase + id + "?w=800&q=80"
}
