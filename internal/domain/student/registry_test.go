package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
)

var (
	alice = Student{Name: "Alice", NationalID: "A0001"}
	bob   = Student{Name: "Bob", NationalID: "A0002"}
	carol = Student{Name: "Carol", NationalID: "A0003"}
)

func TestRegistry_Add(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Add(alice))
	require.NoError(t, reg.Add(bob))
	assert.Equal(t, 2, reg.Len())
	assert.True(t, reg.Contains(alice))

	err := reg.Add(Student{Name: "Another Alice", NationalID: "A0001"})
	assert.ErrorIs(t, err, shared.ErrDuplicateStudent)
	assert.True(t, shared.IsDuplicate(err))
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_ZeroValueIsUsable(t *testing.T) {
	var reg Registry
	require.NoError(t, reg.Add(alice))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_SetStudent(t *testing.T) {
	t.Run("keeps position", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.SetStudents([]Student{alice, bob, carol}))

		edited := Student{Name: "Robert", NationalID: "B0002"}
		require.NoError(t, reg.SetStudent(bob, edited))

		assert.Equal(t, []Student{alice, edited, carol}, reg.View().Slice())
	})

	t.Run("same identity, new name", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Add(alice))

		renamed := Student{Name: "Alice Tan", NationalID: alice.NationalID}
		require.NoError(t, reg.SetStudent(alice, renamed))

		got, ok := reg.Find(alice.NationalID)
		require.True(t, ok)
		assert.Equal(t, renamed, got)
	})

	t.Run("missing target", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Add(alice))

		err := reg.SetStudent(bob, carol)
		assert.ErrorIs(t, err, shared.ErrStudentNotFound)
		assert.True(t, shared.IsNotFound(err))
	})

	t.Run("replacement collides with another student", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.SetStudents([]Student{alice, bob}))

		err := reg.SetStudent(alice, Student{Name: "Bobby", NationalID: bob.NationalID})
		assert.ErrorIs(t, err, shared.ErrDuplicateStudent)
		assert.Equal(t, []Student{alice, bob}, reg.View().Slice())
	})
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.SetStudents([]Student{alice, bob, carol}))

	require.NoError(t, reg.Remove(Student{Name: "whatever", NationalID: bob.NationalID}))
	assert.Equal(t, []Student{alice, carol}, reg.View().Slice())

	assert.ErrorIs(t, reg.Remove(bob), shared.ErrStudentNotFound)
}

func TestRegistry_SetStudents(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(carol))

	input := []Student{alice, bob}
	require.NoError(t, reg.SetStudents(input))
	assert.Equal(t, []Student{alice, bob}, reg.View().Slice())

	// The registry keeps its own copy.
	input[0] = carol
	assert.Equal(t, alice, reg.View().At(0))

	err := reg.SetStudents([]Student{carol, {Name: "Carol Two", NationalID: carol.NationalID}})
	assert.ErrorIs(t, err, shared.ErrDuplicateStudent)
	assert.Equal(t, []Student{alice, bob}, reg.View().Slice())
}

func TestRegistry_ViewIsLive(t *testing.T) {
	reg := NewRegistry()
	view := reg.View()
	assert.True(t, view.IsEmpty())

	require.NoError(t, reg.Add(alice))
	require.NoError(t, reg.Add(bob))
	assert.Equal(t, 2, view.Len())

	require.NoError(t, reg.Remove(alice))
	assert.Equal(t, []Student{bob}, view.Slice())

	require.NoError(t, reg.SetStudents([]Student{carol}))
	assert.Equal(t, []Student{carol}, view.Slice())
}

func TestRegistry_Equal(t *testing.T) {
	a := NewRegistry()
	b := NewRegistry()
	assert.True(t, a.Equal(b))

	require.NoError(t, a.SetStudents([]Student{alice, bob}))
	require.NoError(t, b.SetStudents([]Student{bob, alice}))
	assert.False(t, a.Equal(b), "order matters")

	require.NoError(t, b.SetStudents([]Student{alice, bob}))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
}

func TestAreUnique(t *testing.T) {
	assert.True(t, AreUnique(nil))
	assert.True(t, AreUnique([]Student{alice, bob}))
	assert.False(t, AreUnique([]Student{alice, bob, {Name: "Al", NationalID: alice.NationalID}}))
}

func TestRegistry_Clone(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(alice))

	c := reg.Clone()
	require.NoError(t, c.Add(bob))
	require.NoError(t, c.SetStudent(alice, carol))

	assert.Equal(t, []Student{alice}, reg.View().Slice())
	assert.Equal(t, []Student{carol, bob}, c.View().Slice())
}
