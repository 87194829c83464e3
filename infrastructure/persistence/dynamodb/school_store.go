package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"go.uber.org/zap"

	"handswers-backend/application/ports"
	"handswers-backend/domain/core/entities"
	pkgerrors "handswers-backend/pkg/errors"
)

type schoolItem struct {
	ID        string `dynamodbav:"id"`
	Name      string `dynamodbav:"name"`
	Address   string `dynamodbav:"address"`
	CreatedAt int64  `dynamodbav:"createdAt,omitempty"`
}

// SchoolStore is the Schools table.
type SchoolStore struct {
	table *Table
}

func NewSchoolStore(client DBClient, tableName string, retry RetryPolicy, logger *zap.Logger) *SchoolStore {
	return &SchoolStore{table: NewTable(client, tableName, attrID, retry, logger)}
}

// GetAll pages through the whole table.
func (s *SchoolStore) GetAll(ctx context.Context, page, pageSize int) ([]*entities.School, error) {
	items, err := s.table.ScanPage(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return decodeSchools(items)
}

func (s *SchoolStore) GetByID(ctx context.Context, id string) (*entities.School, error) {
	item, err := s.table.Get(ctx, idKey(id))
	if err != nil {
		return nil, err
	}
	return decodeSchool(item)
}

func (s *SchoolStore) GetByName(ctx context.Context, name string) ([]*entities.School, error) {
	spec := QuerySpec{
		IndexName:    IndexSchoolName,
		KeyCondition: expression.Key(attrName).Equal(expression.Value(name)),
	}
	items, err := s.table.Query(ctx, spec, 1, activeLookupPageSize)
	if err != nil {
		return nil, err
	}
	return decodeSchools(items)
}

func (s *SchoolStore) Create(ctx context.Context, school *entities.School) error {
	item, err := attributevalue.MarshalMap(schoolItem{
		ID:        school.ID,
		Name:      school.Name,
		Address:   school.Address,
		CreatedAt: school.CreatedAt,
	})
	if err != nil {
		return pkgerrors.NewInternalError("failed to encode school").WithCause(err)
	}
	_, err = s.table.Create(ctx, item)
	return err
}

func (s *SchoolStore) Update(ctx context.Context, id string, upd entities.SchoolUpdate) (*entities.School, error) {
	item, err := s.table.Update(ctx, idKey(id), upd)
	if err != nil {
		return nil, err
	}
	return decodeSchool(item)
}

func (s *SchoolStore) Delete(ctx context.Context, id string) (*entities.School, error) {
	item, err := s.table.Delete(ctx, idKey(id))
	if err != nil {
		return nil, err
	}
	return decodeSchool(item)
}

func decodeSchool(item Item) (*entities.School, error) {
	var it schoolItem
	if err := attributevalue.UnmarshalMap(item, &it); err != nil {
		return nil, pkgerrors.NewInternalError("malformed school item").WithCause(err)
	}
	return &entities.School{ID: it.ID, Name: it.Name, Address: it.Address, CreatedAt: it.CreatedAt}, nil
}

func decodeSchools(items []Item) ([]*entities.School, error) {
	out := make([]*entities.School, 0, len(items))
	for _, item := range items {
		s, err := decodeSchool(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

var _ ports.SchoolRepository = (*SchoolStore)(nil)
