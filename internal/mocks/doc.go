// Package mocks provides centralized mock implementations for testing.
//
// Each mock exposes one function field per interface method. Tests set the
// fields they care about; unset methods return their zero result and the
// mock's Err:
//
//	svc := &mocks.MockProgressService{
//	    GetStreakStatusFn: func(ctx context.Context, userID uuid.UUID) (progress.StreakStatus, error) {
//	        return progress.StreakStatus{CurrentStreak: 3}, nil
//	    },
//	}
package mocks
