package catalog_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/shift-ledger/internal/catalog"
	"github.com/zombor/shift-ledger/internal/errs"
)

func price(v int64) *int64 { return &v }

func TestCatalog(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Catalog Suite")
}

var _ = Describe("Catalog", func() {
	var c *catalog.Catalog

	BeforeEach(func() {
		c = catalog.New([]catalog.Section{
			{Name: "Drinks", Entries: []catalog.Entry{
				{Name: "Tea", Price: price(300)},
				{Name: "Anything", Price: nil},
			}},
			{Name: "Food", Entries: []catalog.Entry{
				{Name: "Bun", Price: price(0)},
			}},
		})
	})

	Describe("Item", func() {
		It("assigns positional ids", func() {
			item, err := c.Item("item0_0")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Name).To(Equal("Tea"))
			Expect(item.Price).To(Equal(int64(300)))
			Expect(item.Category).To(Equal("Drinks"))
			Expect(item.Custom).To(BeFalse())
		})

		It("marks entries without a price as custom", func() {
			item, err := c.Item("item0_1")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Custom).To(BeTrue())
		})

		It("keeps zero-priced items as regular items", func() {
			item, err := c.Item("item1_0")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Custom).To(BeFalse())
			Expect(item.Price).To(BeZero())
		})

		When("the id is unknown", func() {
			It("returns a not found error", func() {
				_, err := c.Item("item9_9")
				Expect(errs.Is(err, errs.ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("Category", func() {
		It("returns the category with its items in order", func() {
			cat, err := c.Category("cat0")
			Expect(err).NotTo(HaveOccurred())
			Expect(cat.Name).To(Equal("Drinks"))
			Expect(cat.Items).To(HaveLen(2))
		})

		It("returns a not found error for unknown ids", func() {
			_, err := c.Category("cat7")
			Expect(errs.Is(err, errs.ErrNotFound)).To(BeTrue())
		})
	})

	Describe("Default", func() {
		It("has a custom item in a shop category", func() {
			tags := catalog.DefaultTags()
			found := false
			for _, cat := range catalog.Default().Categories() {
				for _, item := range cat.Items {
					if item.Custom {
						found = true
						Expect(tags.ShopCategories).To(HaveKey(item.Category))
					}
				}
			}
			Expect(found).To(BeTrue())
		})
	})
})
