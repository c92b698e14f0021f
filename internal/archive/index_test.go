package archive

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/shift-ledger/internal/errs"
)

var _ = Describe("BoltIndex", func() {
	var index *BoltIndex

	BeforeEach(func() {
		var err error
		index, err = NewBoltIndex(filepath.Join(GinkgoT().TempDir(), "index.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if index != nil {
			index.Close()
		}
	})

	Describe("SaveSummary", func() {
		It("stores the summary under its id", func() {
			summary := &Summary{
				ID:       "shift_20240115_183000.txt",
				ShiftID:  "abc",
				OpenedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
				ClosedAt: time.Date(2024, 1, 15, 18, 30, 0, 0, time.UTC),
				Sales:    3,
				Cash:     1000,
				Cashless: 500,
				Revenue:  1500,
			}
			Expect(index.SaveSummary(summary)).To(Succeed())

			saved, err := index.GetSummary(summary.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Revenue).To(Equal(int64(1500)))
			Expect(saved.ClosedAt.Equal(summary.ClosedAt)).To(BeTrue())
		})
	})

	Describe("GetSummary", func() {
		When("summary does not exist", func() {
			It("returns a not found error", func() {
				_, err := index.GetSummary("nonexistent")
				Expect(errs.Is(err, errs.ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("ListSummaries", func() {
		When("no summaries exist", func() {
			It("returns an empty list", func() {
				list, err := index.ListSummaries()
				Expect(err).NotTo(HaveOccurred())
				Expect(list).To(BeEmpty())
			})
		})

		When("summaries exist", func() {
			BeforeEach(func() {
				Expect(index.SaveSummary(&Summary{ID: "a"})).To(Succeed())
				Expect(index.SaveSummary(&Summary{ID: "b"})).To(Succeed())
			})

			It("returns all of them", func() {
				list, err := index.ListSummaries()
				Expect(err).NotTo(HaveOccurred())
				Expect(list).To(HaveLen(2))
			})
		})
	})
})
