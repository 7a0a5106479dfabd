package query

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/student"
)

// Fingerprint хеширует реестр студентов с учётом порядка.
// Два реестра, равные по Taskmaster.Equal, дают одинаковый отпечаток.
// Посещаемость в отпечаток не входит, как и в равенство.
func Fingerprint(students shared.List[student.Student]) string {
	d := xxhash.New()
	for s := range students.Values() {
		_, _ = d.WriteString(s.NationalID.String())
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(s.Name.String())
		_, _ = d.Write([]byte{'\n'})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
