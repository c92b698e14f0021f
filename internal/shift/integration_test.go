package shift

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/shift-ledger/internal/archive"
	"github.com/zombor/shift-ledger/internal/backup"
	"github.com/zombor/shift-ledger/internal/catalog"
)

var _ = Describe("Service with file-backed stores", func() {
	var (
		dir      string
		backups  *backup.FileStore
		index    *archive.BoltIndex
		archives *archive.Store
		timeSrc  *mockTimeSource
		newSvc   func() *Service
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		var err error
		backups, err = backup.NewFileStore(filepath.Join(dir, "backups"))
		Expect(err).NotTo(HaveOccurred())
		storage, err := archive.NewLocalStorage(filepath.Join(dir, "closed_sessions"))
		Expect(err).NotTo(HaveOccurred())
		index, err = archive.NewBoltIndex(filepath.Join(dir, "index.db"))
		Expect(err).NotTo(HaveOccurred())

		timeSrc = &mockTimeSource{now: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
		archives = archive.NewStoreWithDeps(storage, index, timeSrc)
		newSvc = func() *Service {
			return NewServiceWithDeps(catalog.Default(), backups, archives, Options{
				Venue: "Cosmos hall",
				Tags:  catalog.DefaultTags(),
			}, &mockIDGenerator{}, timeSrc)
		}
	})

	AfterEach(func() {
		index.Close()
	})

	It("survives a restart with the same ledger", func() {
		first := newSvc()
		Expect(first.OpenShift()).To(Succeed())
		Expect(first.SetExchangeCash(1, "5000")).To(Succeed())
		_, err := first.AddToCart(1, "item0_0")
		Expect(err).NotTo(HaveOccurred())
		_, err = first.AddToCart(1, "item1_1")
		Expect(err).NotTo(HaveOccurred())
		timeSrc.advance(time.Minute)
		_, err = first.Checkout(3000, 2500)
		Expect(err).NotTo(HaveOccurred())
		_, err = first.Refund(1)
		Expect(err).NotTo(HaveOccurred())
		// left in the cart, lost on restart
		_, err = first.AddToCart(1, "item0_1")
		Expect(err).NotTo(HaveOccurred())

		want, _ := first.Sales()
		wantStatus := first.Status()

		second := newSvc()
		Expect(second.Restore()).To(BeTrue())

		got, err := second.Sales()
		Expect(err).NotTo(HaveOccurred())
		Expect(cmp.Diff(want, got)).To(BeEmpty())

		status := second.Status()
		Expect(status.ExchangeCash).To(Equal(wantStatus.ExchangeCash))
		Expect(status.OpenedAt.Equal(wantStatus.OpenedAt)).To(BeTrue())
		Expect(status.ShiftID).To(Equal(wantStatus.ShiftID))
		Expect(status.CartLines).To(BeZero())
	})

	It("archives on close and lists the report", func() {
		svc := newSvc()
		Expect(svc.OpenShift()).To(Succeed())
		Expect(svc.SetExchangeCash(1, "10000")).To(Succeed())
		_, err := svc.AddToCart(1, "item0_0")
		Expect(err).NotTo(HaveOccurred())
		_, err = svc.CheckoutCash()
		Expect(err).NotTo(HaveOccurred())

		timeSrc.advance(26 * time.Hour)
		id, err := svc.CloseShift(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(backups.Path()).NotTo(BeAnExistingFile())

		data, err := svc.FetchArchive(id)
		Expect(err).NotTo(HaveOccurred())
		text := string(data)
		Expect(text).To(HavePrefix("Cosmos hall\nOpened: 01.03.2024 10:00\nClosed: 02.03.2024 12:00\nDuration: 1 day, 2:00:00\n"))
		Expect(text).To(ContainSubstring("10.000₸"))
		Expect(text).To(ContainSubstring("3.500₸"))

		records, err := svc.ListRecentArchives()
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].ID).To(Equal(id))
		Expect(records[0].Summary).NotTo(BeNil())
		Expect(records[0].Summary.Revenue).To(Equal(int64(3500)))
	})
})
