// Package export writes graded results to columnar files for offline analysis.
package export

import (
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core/report"
)

// ResultRecord is one graded subject of a bulletin, flattened with its report card.
type ResultRecord struct {
	EnrollmentID    int64   `parquet:"enrollment_id"`
	AcademicYear    string  `parquet:"academic_year,snappy,dict"`
	Matricule       string  `parquet:"matricule,snappy"`
	StudentName     string  `parquet:"student_name,snappy"`
	ClassName       string  `parquet:"class_name,snappy,dict"`
	Semester        int32   `parquet:"semester"`
	SubjectName     string  `parquet:"subject_name,snappy,dict"`
	Coefficient     int32   `parquet:"coefficient"`
	Score           float64 `parquet:"score"`
	WeightedScore   float64 `parquet:"weighted_score"`
	SemesterAverage float64 `parquet:"semester_average"`
	FinalAverage    float64 `parquet:"final_average"`
}

// FromBulletin flattens blt into one record per graded subject.
func FromBulletin(blt report.Bulletin) []ResultRecord {
	records := make([]ResultRecord, 0, len(blt.Semester1)+len(blt.Semester2))
	add := func(lines []report.Line, sum report.SemesterSummary) {
		for _, l := range lines {
			records = append(records, ResultRecord{
				EnrollmentID:    int64(blt.EnrollmentID),
				AcademicYear:    blt.AcademicYear,
				Matricule:       blt.Matricule,
				StudentName:     blt.StudentName,
				ClassName:       blt.ClassName,
				Semester:        int32(l.Semester),
				SubjectName:     l.SubjectName,
				Coefficient:     int32(l.Coefficient),
				Score:           l.Score,
				WeightedScore:   l.WeightedScore,
				SemesterAverage: sum.Average,
				FinalAverage:    blt.Card.FinalAverage,
			})
		}
	}
	add(blt.Semester1, blt.Card.Semester1)
	add(blt.Semester2, blt.Card.Semester2)
	return records
}

// WriteResults encodes records as a parquet file into w.
func WriteResults(w io.Writer, records []ResultRecord) error {
	writer := parquet.NewGenericWriter[ResultRecord](w)
	if len(records) > 0 {
		if _, err := writer.Write(records); err != nil {
			_ = writer.Close()
			return errors.Wrap(err, "writing parquet rows")
		}
	}
	return errors.Wrap(writer.Close(), "closing parquet writer")
}

// WriteResultsFile creates (or truncates) the file at path and writes records into it.
func WriteResultsFile(path string, records []ResultRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating export file")
	}
	defer func() {
		if cErr := f.Close(); err == nil && cErr != nil {
			err = errors.Wrap(cErr, "closing export file")
		}
	}()
	return WriteResults(f, records)
}
