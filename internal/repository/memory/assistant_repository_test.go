package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai-assistant-studio-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRandom(v float64) func() float64 {
	return func() float64 { return v }
}

func newTestRepo(opts ...AssistantOption) *AssistantRepository {
	base := []AssistantOption{WithLatency(0, 0), WithDeleteFailureRate(0)}
	return NewAssistantRepository(DefaultAssistants(), append(base, opts...)...)
}

func TestAssistantRepository_ListReturnsSeedCopy(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Asistente de Ventas", list[0].Name)
	assert.Equal(t, "Soporte Técnico", list[1].Name)

	list[0].Name = "changed"
	again, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Asistente de Ventas", again[0].Name)
}

func TestAssistantRepository_CreateAssignsUniqueIds(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	a, err := repo.Create(ctx, entity.Assistant{Name: "Nuevo", Language: entity.LanguageSpanish})
	require.NoError(t, err)
	b, err := repo.Create(ctx, entity.Assistant{Name: "Otro", Language: entity.LanguageSpanish})
	require.NoError(t, err)

	assert.NotEmpty(t, a.Id)
	assert.NotEqual(t, a.Id, b.Id)

	got, err := repo.FindById(ctx, a.Id)
	require.NoError(t, err)
	assert.Equal(t, "Nuevo", got.Name)
}

func TestAssistantRepository_UpdateAndSaveRules(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	current, err := repo.FindById(ctx, "2")
	require.NoError(t, err)
	current.Tone = entity.ToneCasual
	_, err = repo.Update(ctx, *current)
	require.NoError(t, err)

	require.NoError(t, repo.SaveRules(ctx, "2", "Sé breve."))

	got, err := repo.FindById(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, entity.ToneCasual, got.Tone)
	assert.Equal(t, "Sé breve.", got.Rules)
}

func TestAssistantRepository_MissingIdIsNotFound(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	_, err := repo.FindById(ctx, "nope")
	assert.ErrorIs(t, err, entity.ErrAssistantNotFound)
	_, err = repo.Update(ctx, entity.Assistant{Id: "nope"})
	assert.ErrorIs(t, err, entity.ErrAssistantNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "nope"), entity.ErrAssistantNotFound)
	assert.ErrorIs(t, repo.SaveRules(ctx, "nope", "x"), entity.ErrAssistantNotFound)
}

func TestAssistantRepository_DeleteRemovesOnlyTarget(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	require.NoError(t, repo.Delete(ctx, "1"))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2", list[0].Id)
}

func TestAssistantRepository_DeleteTransientFailureLeavesStore(t *testing.T) {
	repo := newTestRepo(WithDeleteFailureRate(0.1), WithRandom(fixedRandom(0.05)))
	ctx := context.Background()

	err := repo.Delete(ctx, "1")
	assert.ErrorIs(t, err, entity.ErrTransient)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAssistantRepository_LatencyHonoursContext(t *testing.T) {
	repo := newTestRepo(WithLatency(time.Second, time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := repo.List(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAssistantRepository_LatencyWithinRange(t *testing.T) {
	repo := newTestRepo(WithLatency(20*time.Millisecond, 40*time.Millisecond), WithRandom(fixedRandom(0.5)))

	started := time.Now()
	_, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(started), 30*time.Millisecond)
}

func TestAssistantRepository_ObserverSeesEveryCall(t *testing.T) {
	var ops []string
	var errs []error
	repo := newTestRepo(WithObserver(func(op string, err error, _ time.Duration) {
		ops = append(ops, op)
		errs = append(errs, err)
	}))
	ctx := context.Background()

	_, _ = repo.List(ctx)
	_ = repo.Delete(ctx, "nope")

	assert.Equal(t, []string{"list", "delete"}, ops)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], entity.ErrAssistantNotFound)
}

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	content := `assistants:
  - id: "7"
    name: Recepción
    language: Español
    tone: Amigable
    response_length: {short: 40, medium: 40, long: 20}
    audio_enabled: true
    rules: Saluda siempre.
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	seed, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, seed, 1)
	assert.Equal(t, "7", seed[0].Id)
	assert.Equal(t, entity.ToneFriendly, seed[0].Tone)
	assert.Equal(t, 100, seed[0].ResponseLength.Total())

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("assistants:\n  - name: x\n"), 0o600))
	_, err = LoadSeedFile(bad)
	assert.Error(t, err)
}
