package report

// Semesters of an academic year.
const (
	Semester1 = 1
	Semester2 = 2
)

type (
	// GradeRecord is one graded subject of an enrollment.
	GradeRecord struct {
		SubjectCoefficient int     `db:"coefficient" json:"coefficient"`
		Score              float64 `db:"score" json:"score"`
		Semester           int     `db:"semester" json:"semester"`
	}

	SemesterSummary struct {
		TotalWeightedScore float64 `json:"total_weighted_score"`
		TotalCoefficient   float64 `json:"total_coefficient"`
		Average            float64 `json:"average"`
	}

	ReportCard struct {
		Semester1    SemesterSummary `json:"semester1"`
		Semester2    SemesterSummary `json:"semester2"`
		FinalAverage float64         `json:"final_average"`
	}
)

// Graded reports whether at least one coefficient counted towards the summary.
// A zero Average with Graded() == false means "no grades yet".
func (s SemesterSummary) Graded() bool {
	return s.TotalCoefficient > 0
}

// Aggregate sums the weighted scores and coefficients of records.
// Average is 0 when the total coefficient is 0.
func Aggregate(records []GradeRecord) SemesterSummary {
	var sum SemesterSummary
	for _, rec := range records {
		sum.TotalWeightedScore += rec.Score * float64(rec.SubjectCoefficient)
		sum.TotalCoefficient += float64(rec.SubjectCoefficient)
	}
	sum.Average = average(sum.TotalWeightedScore, sum.TotalCoefficient)
	return sum
}

// BuildReportCard aggregates each semester on its own, then derives the final
// average from the combined totals, never from the two semester averages.
func BuildReportCard(sem1, sem2 []GradeRecord) ReportCard {
	s1 := Aggregate(sem1)
	s2 := Aggregate(sem2)
	return ReportCard{
		Semester1: s1,
		Semester2: s2,
		FinalAverage: average(
			s1.TotalWeightedScore+s2.TotalWeightedScore,
			s1.TotalCoefficient+s2.TotalCoefficient,
		),
	}
}

// SplitBySemester partitions records into semester 1 and semester 2 records.
// Records of any other semester are dropped.
func SplitBySemester(records []GradeRecord) (sem1, sem2 []GradeRecord) {
	for _, rec := range records {
		switch rec.Semester {
		case Semester1:
			sem1 = append(sem1, rec)
		case Semester2:
			sem2 = append(sem2, rec)
		}
	}
	return sem1, sem2
}

func average(weighted, coeff float64) float64 {
	if coeff > 0 {
		return weighted / coeff
	}
	return 0
}
