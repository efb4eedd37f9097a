package query

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/flightschool-cms/internal/client/client"
	"github.com/dmitrijs2005/flightschool-cms/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_InitialStateIsLoading(t *testing.T) {
	q := New(NewCache(), coursesKey, func(ctx context.Context) ([]models.Course, error) { return nil, nil })
	s := q.State()
	assert.Equal(t, StatusLoading, s.Status)
	assert.Nil(t, s.Data)
	assert.Nil(t, s.Err)
}

func TestQuery_Success(t *testing.T) {
	q := New(NewCache(), coreCoursesKey, func(ctx context.Context) ([]models.Course, error) {
		return []models.Course{{Title: "PPL"}, {Title: "IR"}, {Title: "CPL"}}, nil
	})

	s := q.Load(context.Background())
	assert.Equal(t, StatusSuccess, s.Status)
	assert.False(t, s.IsLoading)
	assert.Nil(t, s.Err)
	assert.Len(t, s.Data, 3)
	assert.Equal(t, s, q.State())
}

func TestQuery_Empty(t *testing.T) {
	q := New(NewCache(), coursesKey, func(ctx context.Context) ([]models.Course, error) {
		return []models.Course{}, nil
	})
	assert.Equal(t, StatusEmpty, q.Load(context.Background()).Status)
}

func TestQuery_ErrorClearsData(t *testing.T) {
	var fail atomic.Bool
	q := New(NewCache(WithRetry(0, time.Millisecond)), RecordKey(models.KindAircraft, "42"), func(ctx context.Context) (*models.Aircraft, error) {
		if fail.Load() {
			return nil, &client.CMSError{Status: http.StatusNotFound, Name: "NotFoundError", Message: "Not Found"}
		}
		return &models.Aircraft{Name: "C172"}, nil
	})

	s := q.Load(context.Background())
	require.Equal(t, StatusSuccess, s.Status)

	fail.Store(true)
	s = q.Refetch(context.Background())
	assert.Equal(t, StatusError, s.Status)
	assert.Nil(t, s.Data)
	require.NotNil(t, s.Err)
	assert.Equal(t, http.StatusNotFound, s.Err.Status)
	assert.Equal(t, "NotFoundError", s.Err.Name)
}

func TestQuery_ForeignErrorsBecomeCMSErrors(t *testing.T) {
	q := New(NewCache(WithRetry(0, time.Millisecond)), coursesKey, func(ctx context.Context) ([]models.Course, error) {
		return nil, assert.AnError
	})
	s := q.Load(context.Background())
	require.NotNil(t, s.Err)
	assert.Equal(t, client.NameNetworkError, s.Err.Name)
}

func TestQuery_RetriedFailuresAreNotObserved(t *testing.T) {
	var calls atomic.Int32
	q := New(NewCache(WithRetry(2, time.Millisecond)), coursesKey, func(ctx context.Context) ([]models.Course, error) {
		if calls.Add(1) <= 2 {
			return nil, &client.CMSError{Status: 500, Name: client.NameNetworkError, Message: "Network error occurred"}
		}
		return []models.Course{{Title: "PPL"}}, nil
	})

	s := q.Load(context.Background())
	assert.Equal(t, StatusSuccess, s.Status)
	assert.Nil(t, s.Err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestQuery_CloseDropsLateResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	q := New(NewCache(), coursesKey, func(ctx context.Context) ([]models.Course, error) {
		close(started)
		<-release
		return []models.Course{{Title: "PPL"}}, nil
	})

	done := make(chan State[[]models.Course], 1)
	go func() { done <- q.Load(context.Background()) }()
	<-started
	q.Close()
	close(release)

	s := <-done
	assert.Nil(t, s.Data)
	assert.NotEqual(t, StatusSuccess, q.State().Status)
}

func TestQuery_CancelledLoadKeepsPreviousData(t *testing.T) {
	c := NewCache()
	var calls atomic.Int32
	q := New(c, coursesKey, func(ctx context.Context) ([]models.Course, error) {
		if calls.Add(1) == 1 {
			return []models.Course{{Title: "PPL"}}, nil
		}
		time.Sleep(50 * time.Millisecond)
		return []models.Course{{Title: "IR"}}, nil
	})
	require.Equal(t, StatusSuccess, q.Load(context.Background()).Status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := q.Refetch(ctx)
	assert.False(t, s.IsLoading)
	assert.Equal(t, StatusSuccess, s.Status)
	assert.Equal(t, "PPL", s.Data[0].Title)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "loading", StatusLoading.String())
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "empty", StatusEmpty.String())
	assert.Equal(t, "error", StatusError.String())
}
