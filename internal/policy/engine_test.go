package policy

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"contentflow/internal/auth"
	"contentflow/internal/errors"
	"contentflow/internal/model"
)

// MockAdminLookup is a mock implementation of AdminLookup.
type MockAdminLookup struct {
	mock.Mock
}

func (m *MockAdminLookup) AdminFlag(ctx context.Context, profileID string) (bool, error) {
	args := m.Called(ctx, profileID)
	return args.Bool(0), args.Error(1)
}

// reentrantLookup behaves like a row policy on profiles that asks the
// admin helper again while it is being evaluated.
type reentrantLookup struct {
	engine *Engine
	calls  int
}

func (l *reentrantLookup) AdminFlag(ctx context.Context, profileID string) (bool, error) {
	l.calls++
	if l.calls > 10 {
		panic("admin lookup recursed")
	}
	return l.engine.IsAdmin(ctx, auth.Principal{Subject: profileID})
}

func TestEngine_IsAdmin(t *testing.T) {
	tests := []struct {
		name      string
		principal auth.Principal
		setupMock func(*MockAdminLookup)
		want      bool
		wantErr   error
	}{
		{
			name:      "admin flag set",
			principal: auth.Principal{Subject: "admin-1"},
			setupMock: func(m *MockAdminLookup) {
				m.On("AdminFlag", mock.Anything, "admin-1").Return(true, nil).Once()
			},
			want: true,
		},
		{
			name:      "regular profile",
			principal: auth.Principal{Subject: "client-1"},
			setupMock: func(m *MockAdminLookup) {
				m.On("AdminFlag", mock.Anything, "client-1").Return(false, nil).Once()
			},
			want: false,
		},
		{
			name:      "anonymous",
			principal: auth.Principal{},
			setupMock: func(m *MockAdminLookup) {},
			wantErr:   errors.ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := new(MockAdminLookup)
			tt.setupMock(lookup)
			engine := NewEngine(lookup, nil, 0)

			got, err := engine.IsAdmin(context.Background(), tt.principal)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			lookup.AssertExpectations(t)
		})
	}
}

func TestEngine_LookupFailureIsNotAdmin(t *testing.T) {
	lookup := new(MockAdminLookup)
	lookup.On("AdminFlag", mock.Anything, "p1").Return(false, fmt.Errorf("connection reset"))
	engine := NewEngine(lookup, nil, time.Minute)

	subject, err := engine.Resolve(context.Background(), auth.Principal{Subject: "p1"})
	assert.Error(t, err)
	assert.False(t, subject.Admin)
}

func TestEngine_ResolveLooksUpOnce(t *testing.T) {
	lookup := new(MockAdminLookup)
	lookup.On("AdminFlag", mock.Anything, "client-1").Return(false, nil).Once()
	engine := NewEngine(lookup, nil, 0)

	subject, err := engine.Resolve(context.Background(), auth.Principal{Subject: "client-1", Email: "c@example.com"})
	require.NoError(t, err)
	assert.Equal(t, Subject{ID: "client-1", Email: "c@example.com"}, subject)

	// Row checks afterwards never go back to the lookup.
	for i := 0; i < 100; i++ {
		item := &model.ContentItem{AssignedTo: fmt.Sprintf("p-%d", i)}
		subject.CanReadContent(item)
		subject.CanUpdateContent(item)
		subject.CanReadProfile(item.AssignedTo)
	}
	lookup.AssertNumberOfCalls(t, "AdminFlag", 1)
}

func TestEngine_ReentrantEvaluationTerminates(t *testing.T) {
	lookup := &reentrantLookup{}
	engine := NewEngine(lookup, nil, 0)
	lookup.engine = engine

	done := make(chan error, 1)
	go func() {
		_, err := engine.IsAdmin(context.Background(), auth.Principal{Subject: "p1"})
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errors.ErrPolicyRecursion)
		assert.Equal(t, 1, lookup.calls)
	case <-time.After(2 * time.Second):
		t.Fatal("admin evaluation did not terminate")
	}
}

func TestEngine_DistinctPrincipalsMayNest(t *testing.T) {
	lookup := new(MockAdminLookup)
	lookup.On("AdminFlag", mock.Anything, "outer").Return(true, nil)
	lookup.On("AdminFlag", mock.Anything, "inner").Return(false, nil)
	engine := NewEngine(lookup, nil, 0)

	ctx := markEvaluating(context.Background(), "outer")
	isAdmin, err := engine.IsAdmin(ctx, auth.Principal{Subject: "inner"})
	require.NoError(t, err)
	assert.False(t, isAdmin)

	_, err = engine.IsAdmin(ctx, auth.Principal{Subject: "outer"})
	assert.ErrorIs(t, err, errors.ErrPolicyRecursion)
}
