package service

import (
	"testing"

	"ai-assistant-studio-be/internal/dto"
	"ai-assistant-studio-be/internal/entity"
	"ai-assistant-studio-be/internal/repository/memory"
	"ai-assistant-studio-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssistantService_ListIsCached(t *testing.T) {
	f := newAssistantFixture(t)

	first, err := f.service.List(bg)
	require.NoError(t, err)
	second, err := f.service.List(bg)
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.count("list"))
}

func TestAssistantService_GetByIdNotFound(t *testing.T) {
	f := newAssistantFixture(t)

	_, err := f.service.GetById(bg, "missing")
	assert.ErrorIs(t, err, entity.ErrAssistantNotFound)
}

func TestAssistantService_DeleteSuccess(t *testing.T) {
	f := newAssistantFixture(t)
	_, err := f.service.List(bg)
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(bg, "1"))

	list, err := f.service.List(bg)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "2", list[0].Id)

	changes := f.notifier.ofType(dto.EventAssistantsChanged)
	require.NotEmpty(t, changes)
	// the optimistic removal is published before the store answers
	assert.Equal(t, []string{"2"}, assistantIds(changes[1]))
	assert.Equal(t, []string{"2"}, assistantIds(changes[len(changes)-1]))

	assert.Contains(t, f.eventTypes(), events.TypeAssistantDeleted)
	// resync always runs after settlement
	assert.Equal(t, 2, f.count("list"))
}

func TestAssistantService_DeleteFailureRollsBack(t *testing.T) {
	f := newAssistantFixture(t, memory.WithDeleteFailureRate(1))
	_, err := f.service.List(bg)
	require.NoError(t, err)

	err = f.service.Delete(bg, "1")
	assert.ErrorIs(t, err, entity.ErrTransient)

	list, err := f.service.List(bg)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1", list[0].Id)

	changes := f.notifier.ofType(dto.EventAssistantsChanged)
	require.GreaterOrEqual(t, len(changes), 3)
	assert.Equal(t, []string{"1", "2"}, assistantIds(changes[0]))
	assert.Equal(t, []string{"2"}, assistantIds(changes[1]))
	assert.Equal(t, []string{"1", "2"}, assistantIds(changes[2]))

	assert.Contains(t, f.eventTypes(), events.TypeAssistantDeleteRolledBack)
	assert.Equal(t, 2, f.count("list"))
}

func TestAssistantService_DeleteUnknownRestoresStoreState(t *testing.T) {
	f := newAssistantFixture(t)
	_, err := f.service.List(bg)
	require.NoError(t, err)

	stale, ok := f.list.Get(AssistantsKey)
	require.True(t, ok)
	f.list.Set(AssistantsKey, append(stale, entity.Assistant{Id: "9", Name: "Ghost"}))

	err = f.service.Delete(bg, "9")
	assert.ErrorIs(t, err, entity.ErrAssistantNotFound)

	stored, err := f.repo.List(bg)
	require.NoError(t, err)
	cached, ok := f.list.Get(AssistantsKey)
	require.True(t, ok)
	assert.Equal(t, stored, cached)

	types := f.eventTypes()
	assert.NotContains(t, types, events.TypeAssistantDeleteRolledBack)
	assert.NotContains(t, types, events.TypeAssistantDeleted)
}

func TestAssistantService_DeleteWithoutCachedList(t *testing.T) {
	f := newAssistantFixture(t)

	require.NoError(t, f.service.Delete(bg, "2"))

	list, ok := f.list.Get(AssistantsKey)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, "1", list[0].Id)
}

func TestAssistantService_CreateRefreshesList(t *testing.T) {
	f := newAssistantFixture(t)
	_, err := f.service.List(bg)
	require.NoError(t, err)

	created, err := f.service.Create(bg, &dto.CreateAssistantRequest{
		Name:           "Recepción",
		Language:       entity.LanguagePortuguese,
		Tone:           entity.ToneFormal,
		ResponseLength: dto.ResponseLengthDTO{Short: 10, Medium: 80, Long: 10},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Id)

	list, err := f.service.List(bg)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	assert.Contains(t, f.eventTypes(), events.TypeAssistantCreated)
}

func TestAssistantService_SaveRulesUpdatesCaches(t *testing.T) {
	f := newAssistantFixture(t)
	_, err := f.service.List(bg)
	require.NoError(t, err)
	_, err = f.service.GetById(bg, "2")
	require.NoError(t, err)

	require.NoError(t, f.service.SaveRules(bg, "2", &dto.SaveRulesRequest{Rules: "Responde en viñetas."}))

	got, err := f.service.GetById(bg, "2")
	require.NoError(t, err)
	assert.Equal(t, "Responde en viñetas.", got.Rules)

	list, err := f.service.List(bg)
	require.NoError(t, err)
	assert.Equal(t, "Responde en viñetas.", list[1].Rules)
}

func TestAssistantService_UpdateMissingRollsBack(t *testing.T) {
	f := newAssistantFixture(t)
	_, err := f.service.List(bg)
	require.NoError(t, err)

	_, err = f.service.Update(bg, &dto.UpdateAssistantRequest{
		Id:       "missing",
		Name:     "Nadie",
		Language: entity.LanguageSpanish,
		Tone:     entity.ToneCasual,
	})
	assert.ErrorIs(t, err, entity.ErrAssistantNotFound)

	list, err := f.service.List(bg)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAssistantService_UpdateReplacesFields(t *testing.T) {
	f := newAssistantFixture(t)

	res, err := f.service.Update(bg, &dto.UpdateAssistantRequest{
		Id:             "1",
		Name:           "Ventas Pro",
		Language:       entity.LanguageEnglish,
		Tone:           entity.ToneCasual,
		ResponseLength: dto.ResponseLengthDTO{Short: 50, Medium: 25, Long: 25},
		AudioEnabled:   false,
	})
	require.NoError(t, err)
	assert.Equal(t, "Ventas Pro", res.Name)

	got, err := f.service.GetById(bg, "1")
	require.NoError(t, err)
	assert.Equal(t, entity.LanguageEnglish, got.Language)
	assert.Equal(t, 50, got.ResponseLength.Short)
	assert.Contains(t, f.eventTypes(), events.TypeAssistantUpdated)
}
