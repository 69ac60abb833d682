package payments

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/anjiri1684/teacherin/configs"
)

type MidtransClient struct {
	serverKey  string
	snapURL    string
	coreURL    string
	httpClient *http.Client
}

func NewMidtransClient(cfg config.MidtransConfig) *MidtransClient {
	return &MidtransClient{
		serverKey:  cfg.ServerKey,
		snapURL:    strings.TrimRight(cfg.SnapURL, "/"),
		coreURL:    strings.TrimRight(cfg.CoreURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (m *MidtransClient) Name() string { return "MIDTRANS" }

type snapTransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type snapCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type snapItem struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Category string `json:"category"`
}

type snapRequest struct {
	TransactionDetails snapTransactionDetails `json:"transaction_details"`
	CustomerDetails    snapCustomer           `json:"customer_details"`
	ItemDetails        []snapItem             `json:"item_details"`
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

func (m *MidtransClient) CreateTransaction(ctx context.Context, req TransactionRequest) (*Transaction, error) {
	firstName, lastName := splitName(req.CustomerName)
	payload := snapRequest{
		TransactionDetails: snapTransactionDetails{OrderID: req.OrderID, GrossAmount: req.Amount},
		CustomerDetails:    snapCustomer{FirstName: firstName, LastName: lastName, Email: req.CustomerEmail},
		ItemDetails: []snapItem{{
			ID:       req.ItemID,
			Price:    req.Amount,
			Quantity: 1,
			Name:     truncate(req.ItemName, 50),
			Brand:    "Teacherin",
			Category: "Education",
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.snapURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	m.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach midtrans: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	var snap snapResponse
	if err := json.Unmarshal(respBody, &snap); err != nil {
		return nil, fmt.Errorf("midtrans returned %s: %s", resp.Status, string(respBody))
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("midtrans returned %s: %s", resp.Status, strings.Join(snap.ErrorMessages, "; "))
	}
	if snap.RedirectURL == "" {
		return nil, fmt.Errorf("midtrans response missing redirect_url")
	}

	return &Transaction{Token: snap.Token, RedirectURL: snap.RedirectURL, Reference: req.OrderID}, nil
}

func (m *MidtransClient) GetStatus(ctx context.Context, reference string) (*Notification, error) {
	endpoint := fmt.Sprintf("%s/%s/status", m.coreURL, url.PathEscape(reference))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	m.authorize(httpReq)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach midtrans: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("midtrans status returned %s: %s", resp.Status, string(respBody))
	}

	n, err := ParseNotification(respBody)
	if err != nil {
		return nil, err
	}
	// the core API reports its own outcome code in the body; 404 there
	// means the order was never created on the gateway side
	if n.StatusCode == "404" {
		return nil, fmt.Errorf("midtrans has no transaction %s", reference)
	}
	return n, nil
}

// VerifySignature checks signature_key = sha512(order_id + status_code +
// gross_amount + server_key).
func (m *MidtransClient) VerifySignature(n *Notification) bool {
	if n == nil || n.SignatureKey == "" || m.serverKey == "" {
		return false
	}
	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, m.serverKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(n.SignatureKey))) == 1
}

func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func ParseNotification(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("cannot parse gateway notification: %w", err)
	}
	n.Raw = append([]byte(nil), body...)
	return &n, nil
}

func (m *MidtransClient) authorize(req *http.Request) {
	req.SetBasicAuth(m.serverKey, "")
	req.Header.Set("Accept", "application/json")
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "Student", "-"
	}
	if len(parts) == 1 {
		return parts[0], "-"
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
