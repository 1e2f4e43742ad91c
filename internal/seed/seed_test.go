package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/repositories/inmem"
)

func TestCreateDefaultData(t *testing.T) {
	ctx := context.Background()
	repos := inmem.NewRepositories(inmem.NewDB())

	require.NoError(t, CreateDefaultData(ctx, repos.Plans, zerolog.Nop()))
	plans, err := repos.Plans.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, len(DefaultPlans))

	// an edited price survives a second boot
	monthly, err := repos.Plans.GetByCode(ctx, "platform-monthly")
	require.NoError(t, err)
	monthly.Amount = 4900
	require.NoError(t, repos.Plans.Upsert(ctx, monthly))

	require.NoError(t, CreateDefaultData(ctx, repos.Plans, zerolog.Nop()))
	monthly, err = repos.Plans.GetByCode(ctx, "platform-monthly")
	require.NoError(t, err)
	assert.Equal(t, int64(4900), monthly.Amount)
}
