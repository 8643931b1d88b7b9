package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestListReceiptsDecodesWirePayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/receipts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("limit=%s, want 100", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"receipts": [{
				"id": 7,
				"store_name": "Acme Mart",
				"purchase_date": "2025-06-12T00:00:00",
				"total_amount": 6.42,
				"tax_amount": 0.42,
				"source_type": "scan",
				"created_at": "2025-06-12T10:00:00",
				"items": [
					{"id": 1, "receipt_id": 7, "name": "Milk", "quantity": 2, "unit_price": 3.0, "total_price": 6.0, "category": "Dairy"}
				]
			}],
			"total": 1, "limit": 100, "offset": 0
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	receipts, err := c.ListReceipts(context.Background(), 100)
	if err != nil {
		t.Fatalf("ListReceipts: %v", err)
	}
	if len(receipts) != 1 {
		t.Fatalf("got %d receipts, want 1", len(receipts))
	}
	r := receipts[0]
	if r.ID != 7 || r.StoreName != "Acme Mart" || r.TotalAmount != 6.42 {
		t.Fatalf("unexpected receipt: %+v", r)
	}
	if r.PurchaseDate.Day() != 12 || int(r.PurchaseDate.Month()) != 6 {
		t.Fatalf("purchase date not parsed: %v", r.PurchaseDate)
	}
	if len(r.Items) != 1 || r.Items[0].Name != "Milk" || r.Items[0].Quantity != 2 {
		t.Fatalf("items not decoded: %+v", r.Items)
	}
}

func TestServerErrorPayloadIsSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "could not parse receipt"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Summary(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d", apiErr.StatusCode)
	}
	if got := ServerMessage(err, "generic"); got != "could not parse receipt" {
		t.Fatalf("ServerMessage=%q", got)
	}
}

func TestServerMessageFallsBackForTransportErrors(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", 100*time.Millisecond)
	_, err := c.Summary(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if got := ServerMessage(err, "generic failure"); got != "generic failure" {
		t.Fatalf("ServerMessage=%q, want fallback", got)
	}
}

func TestUploadScanSendsMultipartAndDecodesEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/receipts/upload-scan" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			f.Close()
			if hdr.Filename != "receipt.jpg" {
				t.Errorf("filename=%q", hdr.Filename)
			}
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"success": true,
			"message": "Receipt processed successfully",
			"receipt": {"id": 9, "store_name": "Acme Mart", "purchase_date": "2025-06-12", "total_amount": 6.42, "tax_amount": 0.42, "source_type": "scan", "items": []}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	receipt, err := c.UploadScan(context.Background(), "receipt.jpg", []byte("fake-jpeg-bytes"))
	if err != nil {
		t.Fatalf("UploadScan: %v", err)
	}
	if receipt.ID != 9 || receipt.StoreName != "Acme Mart" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
}

func TestDeleteReceiptUsesDeleteMethod(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		_, _ = w.Write([]byte(`{"success": true, "message": "Receipt deleted"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if err := c.DeleteReceipt(context.Background(), 42); err != nil {
		t.Fatalf("DeleteReceipt: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/receipts/42" {
		t.Fatalf("request was %s %s", gotMethod, gotPath)
	}
}

func TestDeleteReceiptNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "receipt not found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	err := c.DeleteReceipt(context.Background(), 999)
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 api error, got %v", err)
	}
}
