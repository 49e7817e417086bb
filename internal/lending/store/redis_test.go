// internal/lending/store/redis_test.go
package store

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_GetSubmission_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock redismock.ClientMock)
		wantErr error
	}{
		{
			name: "missing key maps to not found",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet("lending:submission:APP-1").RedisNil()
			},
			wantErr: ErrNotFound,
		},
		{
			name: "connection error is wrapped",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet("lending:submission:APP-1").SetErr(errors.New("connection refused"))
			},
		},
		{
			name: "corrupt payload",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet("lending:submission:APP-1").SetVal("{not json")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			tt.setup(mock)

			s := NewRedisStore(client, "", 0)
			_, err := s.GetSubmission(context.Background(), "APP-1")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NotErrorIs(t, err, ErrNotFound)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRedisStore_GetRecord_Errors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectGet("lending:record:APP-1:hdfc").RedisNil()
	mock.ExpectGet("lending:record:APP-1:axis").SetErr(errors.New("i/o timeout"))

	s := NewRedisStore(client, "", 0)

	_, err := s.GetRecord(context.Background(), "APP-1", "hdfc")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetRecord(context.Background(), "APP-1", "axis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "i/o timeout")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_ListAllRecords_Error(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectSMembers("lending:applications").SetErr(errors.New("LOADING"))

	s := NewRedisStore(client, "", 0)
	_, err := s.ListAllRecords(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list applications")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_ListRecords_Errors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.ExpectSMembers("lending:lenders:APP-1").SetVal([]string{"hdfc", "axis"})
	mock.ExpectMGet("lending:record:APP-1:hdfc", "lending:record:APP-1:axis").SetErr(errors.New("READONLY"))

	s := NewRedisStore(client, "", 0)
	_, err := s.ListRecords(context.Background(), "APP-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "READONLY")
	assert.NoError(t, mock.ExpectationsWereMet())
}
