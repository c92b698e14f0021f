package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/shift-ledger/internal/archive"
	"github.com/zombor/shift-ledger/internal/backup"
	"github.com/zombor/shift-ledger/internal/catalog"
	"github.com/zombor/shift-ledger/internal/shift"
)

func TestWeb(t *testing.T) {
	// Disable logging during tests
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	RegisterFailHandler(Fail)
	RunSpecs(t, "Web Suite")
}

var _ = Describe("Server", func() {
	var (
		service     *shift.Service
		index       *archive.BoltIndex
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	BeforeEach(func() {
		dir := GinkgoT().TempDir()
		backups, err := backup.NewFileStore(filepath.Join(dir, "backups"))
		Expect(err).NotTo(HaveOccurred())
		storage, err := archive.NewLocalStorage(filepath.Join(dir, "closed"))
		Expect(err).NotTo(HaveOccurred())
		index, err = archive.NewBoltIndex(filepath.Join(dir, "index.db"))
		Expect(err).NotTo(HaveOccurred())
		service = shift.NewService(catalog.Default(), backups, archive.NewStore(storage, index), shift.Options{
			Venue: "Cosmos hall",
			Tags:  catalog.DefaultTags(),
		})
		auth = BasicAuth{}
	})

	JustBeforeEach(func() {
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	AfterEach(func() {
		ghttpServer.Close()
		index.Close()
	})

	get := func(path string) *http.Response {
		resp, err := http.Get(ghttpServer.URL() + path)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	body := func(resp *http.Response) string {
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return string(data)
	}

	Describe("handleHealth", func() {
		It("should return ok", func() {
			resp := get("/healthz")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body(resp)).To(Equal("ok"))
		})
	})

	Describe("handleIndex", func() {
		It("should return the HTML page", func() {
			resp := get("/")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body(resp)).To(ContainSubstring("Shift Ledger"))
		})
	})

	Describe("handleStatus", func() {
		When("a shift is open", func() {
			BeforeEach(func() {
				Expect(service.OpenShift()).To(Succeed())
			})

			It("should include the cart total", func() {
				_, err := service.AddToCart(1, "item0_0")
				Expect(err).NotTo(HaveOccurred())
				resp := get("/api/status")
				var status statusResponse
				Expect(json.Unmarshal([]byte(body(resp)), &status)).To(Succeed())
				Expect(status.CartLines).To(Equal(1))
				Expect(status.CartTotal).To(Equal(int64(3500)))
			})

			It("should report it", func() {
				resp := get("/api/status")
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
				var status statusResponse
				Expect(json.Unmarshal([]byte(body(resp)), &status)).To(Succeed())
				Expect(status.Open).To(BeTrue())
				Expect(status.ShiftID).NotTo(BeEmpty())
				Expect(status.OpenedAt).NotTo(BeNil())
			})
		})
	})

	Describe("handleReport", func() {
		When("no shift is open", func() {
			It("should return status Conflict", func() {
				resp := get("/api/reports/metrics")
				Expect(resp.StatusCode).To(Equal(http.StatusConflict))
				resp.Body.Close()
			})
		})

		When("a shift is open", func() {
			BeforeEach(func() {
				Expect(service.OpenShift()).To(Succeed())
				_, err := service.AddToCart(1, "item0_0")
				Expect(err).NotTo(HaveOccurred())
				_, err = service.CheckoutCash()
				Expect(err).NotTo(HaveOccurred())
			})

			It("should render the receipts", func() {
				resp := get("/api/reports/receipts")
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(body(resp)).To(ContainSubstring("Receipt #1"))
			})

			It("should reject unknown kinds", func() {
				resp := get("/api/reports/weekly")
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("archives", func() {
		var id string

		BeforeEach(func() {
			Expect(service.OpenShift()).To(Succeed())
			var err error
			id, err = service.CloseShift(context.Background())
			Expect(err).NotTo(HaveOccurred())
		})

		It("should list the closed shift", func() {
			resp := get("/api/archives")
			var records []archive.Record
			Expect(json.Unmarshal([]byte(body(resp)), &records)).To(Succeed())
			Expect(records).To(HaveLen(1))
			Expect(records[0].ID).To(Equal(id))
		})

		It("should return the document", func() {
			resp := get("/api/archives/" + id)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body(resp)).To(HavePrefix("Cosmos hall\n"))
		})

		It("should return the indexed summary", func() {
			resp := get("/api/archives/" + id + "/summary")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var summary archive.Summary
			Expect(json.Unmarshal([]byte(body(resp)), &summary)).To(Succeed())
			Expect(summary.ID).To(Equal(id))
			Expect(summary.Sales).To(BeZero())
		})

		It("should return status Not Found for a missing summary", func() {
			resp := get("/api/archives/shift_19990101_000000.txt/summary")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})

		It("should return status Not Found for unknown ids", func() {
			resp := get("/api/archives/shift_19990101_000000.txt")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			resp.Body.Close()
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		It("should reject requests without credentials", func() {
			resp := get("/api/archives")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Basic"))
			resp.Body.Close()
		})

		It("should accept valid credentials", func() {
			req, err := http.NewRequest(http.MethodGet, ghttpServer.URL()+"/api/archives", nil)
			Expect(err).NotTo(HaveOccurred())
			req.SetBasicAuth("admin", "secret")
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})

		It("should leave the health check open", func() {
			resp := get("/healthz")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})
	})
})
