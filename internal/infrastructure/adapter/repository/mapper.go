package repository

import (
	"fmt"
	"sort"

	"github.com/amirhossein-jamali/mwallet/internal/domain/entity"
	errs "github.com/amirhossein-jamali/mwallet/internal/domain/error"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/model"
)

func userToEntity(m *model.User, timeProvider coreport.TimeProvider) (*entity.User, error) {
	sort.SliceStable(m.Accounts, func(i, j int) bool { return m.Accounts[i].Position < m.Accounts[j].Position })

	accounts := make([]entity.Account, 0, len(m.Accounts))
	for _, acc := range m.Accounts {
		accounts = append(accounts, entity.Account{BankCode: acc.BankCode, AccountNumber: acc.AccountNumber})
	}

	user, err := entity.NewUser(entity.UserParams{
		ID:       m.ID,
		FullName: m.FullName,
		Email:    m.Email,
		Phone:    m.Phone,
		Network:  entity.Carrier(m.Network),
		Password: m.Password,
		PIN:      m.PIN,
		Balance:  m.Balance,
		Accounts: accounts,
	}, timeProvider)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create user entity: %s", errs.ErrInternalServer, err.Error())
	}
	user.CreatedAt = m.CreatedAt
	user.UpdatedAt = m.UpdatedAt
	return user, nil
}

func userToModel(u *entity.User) *model.User {
	m := &model.User{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Phone:     u.Phone,
		Network:   string(u.Network),
		Password:  u.Password,
		PIN:       u.PIN,
		Balance:   u.Balance(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	for i, acc := range u.Accounts {
		m.Accounts = append(m.Accounts, model.Account{
			UserID:        u.ID,
			BankCode:      acc.BankCode,
			AccountNumber: acc.AccountNumber,
			Position:      i,
		})
	}
	return m
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func transactionToModel(t *entity.Transaction) *model.Transaction {
	return &model.Transaction{
		ID:          t.ID,
		SenderID:    optional(t.SenderID),
		ReceiverID:  optional(t.ReceiverID),
		UserID:      optional(t.UserID),
		Amount:      t.Amount,
		Type:        string(t.Type),
		Description: t.Description,
		Status:      string(t.Status),
		Date:        t.Date,
	}
}

func transactionToEntity(m *model.Transaction) *entity.Transaction {
	return &entity.Transaction{
		ID:          m.ID,
		SenderID:    deref(m.SenderID),
		ReceiverID:  deref(m.ReceiverID),
		UserID:      deref(m.UserID),
		Amount:      m.Amount,
		Type:        entity.TransactionType(m.Type),
		Description: m.Description,
		Status:      entity.TransactionStatus(m.Status),
		Date:        m.Date,
	}
}
