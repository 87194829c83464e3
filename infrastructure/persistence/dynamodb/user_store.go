package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	pkgerrors "handswers-backend/pkg/errors"
)

const (
	attrID     = "id"
	attrEmail  = "email"
	attrSchool = "school"
	attrType   = "type"
	attrName   = "name"

	UsersPageSize   = 25
	SchoolsPageSize = 10
)

type userItem struct {
	ID                string   `dynamodbav:"id"`
	Email             string   `dynamodbav:"email"`
	Type              string   `dynamodbav:"type"`
	School            string   `dynamodbav:"school"`
	Enabled           bool     `dynamodbav:"enabled"`
	AccountExpiration int64    `dynamodbav:"accountExpiration"`
	Roles             []string `dynamodbav:"roles"`
	CreatedAt         int64    `dynamodbav:"createdAt,omitempty"`
}

func idKey(id string) Item {
	return Item{attrID: &types.AttributeValueMemberS{Value: id}}
}

// UserStore is the Users table.
type UserStore struct {
	table  *Table
	logger *zap.Logger
}

func NewUserStore(client DBClient, tableName string, retry RetryPolicy, logger *zap.Logger) *UserStore {
	return &UserStore{
		table:  NewTable(client, tableName, attrID, retry, logger),
		logger: logger,
	}
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*entities.User, error) {
	item, err := s.table.Get(ctx, idKey(id))
	if err != nil {
		return nil, err
	}
	return decodeUser(item)
}

// GetByEmail returns every account with the address. Email is unique by
// convention only, so callers look at the first match.
func (s *UserStore) GetByEmail(ctx context.Context, email string) ([]*entities.User, error) {
	spec := QuerySpec{
		IndexName:    IndexUserEmail,
		KeyCondition: expression.Key(attrEmail).Equal(expression.Value(email)),
	}
	items, err := s.table.Query(ctx, spec, 1, activeLookupPageSize)
	if err != nil {
		return nil, err
	}
	return decodeUsers(items)
}

func (s *UserStore) GetBySchoolAndType(ctx context.Context, schoolID string, userType entities.UserType, page, pageSize int) ([]*entities.User, error) {
	spec := QuerySpec{
		IndexName: IndexUserSchool,
		KeyCondition: expression.Key(attrSchool).Equal(expression.Value(schoolID)).
			And(expression.Key(attrType).Equal(expression.Value(string(userType)))),
	}
	items, err := s.table.Query(ctx, spec, page, pageSize)
	if err != nil {
		return nil, err
	}
	return decodeUsers(items)
}

func (s *UserStore) CreateMany(ctx context.Context, users []*entities.User) (ports.BatchResult, error) {
	items := make([]Item, 0, len(users))
	for _, u := range users {
		item, err := attributevalue.MarshalMap(userItem{
			ID:                u.ID,
			Email:             u.Email,
			Type:              string(u.Type),
			School:            u.School,
			Enabled:           u.Enabled,
			AccountExpiration: u.AccountExpiration,
			Roles:             u.Roles,
			CreatedAt:         u.CreatedAt,
		})
		if err != nil {
			return ports.BatchResult{}, pkgerrors.NewInternalError("failed to encode user").WithCause(err)
		}
		items = append(items, item)
	}
	res, err := s.table.BatchPut(ctx, items)
	if err == nil && res.Unprocessed > 0 {
		s.logger.Warn("Some users were not created", zap.Int("unprocessed", res.Unprocessed))
	}
	return res, err
}

func (s *UserStore) Update(ctx context.Context, id string, upd entities.UserUpdate) (*entities.User, error) {
	item, err := s.table.Update(ctx, idKey(id), upd)
	if err != nil {
		return nil, err
	}
	return decodeUser(item)
}

func (s *UserStore) Delete(ctx context.Context, id string) (*entities.User, error) {
	item, err := s.table.Delete(ctx, idKey(id))
	if err != nil {
		return nil, err
	}
	return decodeUser(item)
}

func decodeUser(item Item) (*entities.User, error) {
	var it userItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, pkgerrors.NewInternalError("malformed user item").WithCause(err)
	}
	roles := it.Roles
	if roles == nil {
		roles = []string{}
	}
	return &entities.User{
		ID:                it.ID,
		Email:             it.Email,
		Type:              entities.UserType(it.Type),
		School:            it.School,
		Enabled:           it.Enabled,
		AccountExpiration: it.AccountExpiration,
		Roles:             roles,
		CreatedAt:         it.CreatedAt,
	}, nil
}

func decodeUsers(items []Item) ([]*entities.User, error) {
	out := make([]*entities.User, 0, len(items))
	for _, item := range items {
		u, err := decodeUser(item)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

var _ ports.UserRepository = (*UserStore)(nil)
