package archive

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/shift-ledger/internal/errs"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		var (
			filename  string
			data      []byte
			savedName string
			err       error
		)

		BeforeEach(func() {
			filename = "shift_20240115_183000.txt"
			data = []byte("report")
		})

		JustBeforeEach(func() {
			savedName, err = storage.Save(filename, data)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the file name", func() {
				Expect(savedName).To(Equal(filename))
			})

			It("should save the file to disk", func() {
				Expect(filepath.Join(tmpDir, filename)).To(BeAnExistingFile())
			})
		})

		When("the file already exists", func() {
			BeforeEach(func() {
				_, saveErr := storage.Save(filename, []byte("first"))
				Expect(saveErr).NotTo(HaveOccurred())
			})

			It("returns an io error", func() {
				Expect(errs.Is(err, errs.ErrIO)).To(BeTrue())
			})

			It("keeps the original content", func() {
				content, getErr := storage.Get(filename)
				Expect(getErr).NotTo(HaveOccurred())
				Expect(string(content)).To(Equal("first"))
			})
		})
	})

	Describe("Get", func() {
		When("file does not exist", func() {
			It("returns a not found error", func() {
				_, err := storage.Get("missing.txt")
				Expect(errs.Is(err, errs.ErrNotFound)).To(BeTrue())
			})
		})
	})

	Describe("List", func() {
		It("returns the stored names sorted", func() {
			for _, name := range []string{"b.txt", "a.txt"} {
				_, err := storage.Save(name, []byte("x"))
				Expect(err).NotTo(HaveOccurred())
			}
			names, err := storage.List()
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"a.txt", "b.txt"}))
		})
	})
})
