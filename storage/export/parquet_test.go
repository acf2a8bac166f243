package export

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ecole/core/report"
)

func testBulletin() report.Bulletin {
	sem1 := []report.Line{{SubjectID: 1, SubjectName: "Maths", Coefficient: 2, Score: 10, Semester: 1, WeightedScore: 20}}
	sem2 := []report.Line{
		{SubjectID: 1, SubjectName: "Maths", Coefficient: 2, Score: 12, Semester: 2, WeightedScore: 24},
		{SubjectID: 2, SubjectName: "French", Coefficient: 3, Score: 16, Semester: 2, WeightedScore: 48},
	}
	return report.Bulletin{
		Header: report.Header{
			EnrollmentID: 4,
			StudentName:  "Amani Kabila",
			Matricule:    "M-001",
			ClassName:    "6e A",
			AcademicYear: "2025-2026",
		},
		Semester1: sem1,
		Semester2: sem2,
		Card: report.BuildReportCard(
			[]report.GradeRecord{sem1[0].GradeRecord()},
			[]report.GradeRecord{sem2[0].GradeRecord(), sem2[1].GradeRecord()},
		),
	}
}

func TestFromBulletin(t *testing.T) {
	records := FromBulletin(testBulletin())
	require.Len(t, records, 3)

	assert.Equal(t, int64(4), records[0].EnrollmentID)
	assert.Equal(t, int32(1), records[0].Semester)
	assert.Equal(t, 10.0, records[0].SemesterAverage)
	assert.Equal(t, "French", records[2].SubjectName)
	assert.Equal(t, 14.4, records[2].SemesterAverage)
	for _, rec := range records {
		assert.InDelta(t, 92.0/7.0, rec.FinalAverage, 1e-9)
		assert.Equal(t, "M-001", rec.Matricule)
	}

	assert.Empty(t, FromBulletin(report.Bulletin{}))
}

func TestWriteResultsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.parquet")
	records := FromBulletin(testBulletin())
	require.NoError(t, WriteResultsFile(path, records))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	reader := parquet.NewGenericReader[ResultRecord](f)
	defer reader.Close()

	got := make([]ResultRecord, reader.NumRows())
	n, err := reader.Read(got)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, len(records), n)
	assert.Equal(t, records, got)
}

func TestWriteResultsFile_empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteResultsFile(path, nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	reader := parquet.NewGenericReader[ResultRecord](f)
	defer reader.Close()
	assert.Equal(t, int64(0), reader.NumRows())
}
