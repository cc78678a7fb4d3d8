package repository

import (
	"context"

	"gorm.io/gorm"
)

// RepositoryManager combines all repositories
type RepositoryManager interface {
	Account() AccountRepository
	AgentBinding() AgentBindingRepository
	PhoneNumber() PhoneNumberRepository
	PromptTemplate() PromptTemplateRepository
	Call() CallRepository

	// Transaction support
	WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connection
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM
type GormRepositoryManager struct {
	db                 *gorm.DB
	accountRepo        *GormAccountRepository
	agentBindingRepo   *GormAgentBindingRepository
	phoneNumberRepo    *GormPhoneNumberRepository
	promptTemplateRepo *GormPromptTemplateRepository
	callRepo           *GormCallRepository
}

// NewGormRepositoryManager creates a new GORM repository manager
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:                 db,
		accountRepo:        NewGormAccountRepository(db),
		agentBindingRepo:   NewGormAgentBindingRepository(db),
		phoneNumberRepo:    NewGormPhoneNumberRepository(db),
		promptTemplateRepo: NewGormPromptTemplateRepository(db),
		callRepo:           NewGormCallRepository(db),
	}
}

// Account returns the account repository
func (m *GormRepositoryManager) Account() AccountRepository {
	return m.accountRepo
}

// AgentBinding returns the agent binding repository
func (m *GormRepositoryManager) AgentBinding() AgentBindingRepository {
	return m.agentBindingRepo
}

// PhoneNumber returns the phone number repository
func (m *GormRepositoryManager) PhoneNumber() PhoneNumberRepository {
	return m.phoneNumberRepo
}

// PromptTemplate returns the prompt template repository
func (m *GormRepositoryManager) PromptTemplate() PromptTemplateRepository {
	return m.promptTemplateRepo
}

// Call returns the call repository
func (m *GormRepositoryManager) Call() CallRepository {
	return m.callRepo
}

// WithTx executes a function within a database transaction
func (m *GormRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewGormRepositoryManager(tx))
	})
}

// Ping checks the database connection
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
