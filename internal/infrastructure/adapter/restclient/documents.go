package restclient

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
)

// amount is a naira value carried as a bare JSON number, e.g. 50000 or 150.5.
// Decoding also accepts quoted numbers.
type amount struct {
	decimal.Decimal
}

func amountFromMinor(minor int64) amount {
	return amount{entity.AmountToDecimal(minor)}
}

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// minor converts to kobo. Values written by older clients can carry float
// noise past two decimals and are rounded.
func (a amount) minor() (int64, error) {
	return entity.AmountFromDecimal(a.Decimal.Round(entity.MaxDecimalPlaces))
}

type userDocument struct {
	ID            string           `json:"id"`
	FullName      string           `json:"fullName"`
	Email         string           `json:"email"`
	Phone         string           `json:"phone"`
	Network       string           `json:"network,omitempty"`
	Password      string           `json:"password"`
	PIN           string           `json:"pin"`
	WalletBalance amount           `json:"walletBalance"`
	Accounts      []entity.Account `json:"accounts"`
	CreatedAt     *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time       `json:"updatedAt,omitempty"`
}

type balancePatch struct {
	WalletBalance amount    `json:"walletBalance"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type transactionDocument struct {
	ID          string `json:"id"`
	SenderID    string `json:"senderId,omitempty"`
	ReceiverID  string `json:"receiverId,omitempty"`
	UserID      string `json:"userId,omitempty"`
	Amount      amount `json:"amount"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Date        string `json:"date"`
}

func userToDocument(u *entity.User) userDocument {
	created, updated := u.CreatedAt, u.UpdatedAt
	return userDocument{
		ID:            u.ID,
		FullName:      u.FullName,
		Email:         u.Email,
		Phone:         u.Phone,
		Network:       string(u.Network),
		Password:      u.Password,
		PIN:           u.PIN,
		WalletBalance: amountFromMinor(u.Balance()),
		Accounts:      append([]entity.Account(nil), u.Accounts...),
		CreatedAt:     &created,
		UpdatedAt:     &updated,
	}
}

func documentToUser(doc *userDocument, timeProvider coreport.TimeProvider) (*entity.User, error) {
	balance, err := doc.WalletBalance.minor()
	if err != nil {
		return nil, err
	}

	network, ok := entity.ParseCarrier(doc.Network)
	if !ok {
		network = entity.DetectCarrier(doc.Phone)
	}

	user, err := entity.NewUser(entity.UserParams{
		ID:       doc.ID,
		FullName: doc.FullName,
		Email:    doc.Email,
		Phone:    doc.Phone,
		Network:  network,
		Password: doc.Password,
		PIN:      doc.PIN,
		Balance:  balance,
		Accounts: validAccounts(doc.Accounts),
	}, timeProvider)
	if err != nil {
		return nil, err
	}

	if doc.CreatedAt != nil {
		user.CreatedAt = *doc.CreatedAt
	}
	if doc.UpdatedAt != nil {
		user.UpdatedAt = *doc.UpdatedAt
	}
	return user, nil
}

// validAccounts drops malformed accounts left by hand-edited records
func validAccounts(accounts []entity.Account) []entity.Account {
	out := make([]entity.Account, 0, len(accounts))
	for _, acc := range accounts {
		if acc.Validate() == nil {
			out = append(out, acc)
		}
	}
	return out
}

func transactionToDocument(t *entity.Transaction) transactionDocument {
	return transactionDocument{
		ID:          t.ID,
		SenderID:    t.SenderID,
		ReceiverID:  t.ReceiverID,
		UserID:      t.UserID,
		Amount:      amountFromMinor(t.Amount),
		Type:        string(t.Type),
		Description: t.Description,
		Status:      string(t.Status),
		Date:        t.Date.UTC().Format(time.RFC3339Nano),
	}
}

func documentToTransaction(doc *transactionDocument) *entity.Transaction {
	minor, err := doc.Amount.minor()
	if err != nil {
		minor = 0
	}

	status := entity.TransactionStatus(doc.Status)
	if status == "" {
		status = entity.StatusCompleted
	}

	date, err := time.Parse(time.RFC3339Nano, doc.Date)
	if err != nil {
		date = time.Time{}
	}

	return &entity.Transaction{
		ID:          doc.ID,
		SenderID:    doc.SenderID,
		ReceiverID:  doc.ReceiverID,
		UserID:      doc.UserID,
		Amount:      minor,
		Type:        entity.TransactionType(strings.ToLower(doc.Type)),
		Description: strings.TrimSpace(doc.Description),
		Status:      status,
		Date:        date,
	}
}
