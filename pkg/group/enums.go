package group

// FormOfEducation describes how a study group is taught.
type FormOfEducation string

const (
	DistanceEducation FormOfEducation = "DISTANCE_EDUCATION"
	FullTimeEducation FormOfEducation = "FULL_TIME_EDUCATION"
	EveningClasses    FormOfEducation = "EVENING_CLASSES"
)

// Semester is the ordered semester a group is currently in.
// The declaration order defines the ordering used by MIN_BY_SEMESTER_ENUM.
type Semester string

const (
	SemesterFirst   Semester = "FIRST"
	SemesterSecond  Semester = "SECOND"
	SemesterFifth   Semester = "FIFTH"
	SemesterSixth   Semester = "SIXTH"
	SemesterSeventh Semester = "SEVENTH"
)

// Color is used for both eye and hair color of a group admin.
type Color string

const (
	ColorGreen  Color = "GREEN"
	ColorBlack  Color = "BLACK"
	ColorBlue   Color = "BLUE"
	ColorOrange Color = "ORANGE"
	ColorBrown  Color = "BROWN"
	ColorWhite  Color = "WHITE"
)

// Country is the nationality of a group admin.
type Country string

const (
	CountryRussia     Country = "RUSSIA"
	CountryGermany    Country = "GERMANY"
	CountryChina      Country = "CHINA"
	CountryThailand   Country = "THAILAND"
	CountryNorthKorea Country = "NORTH_KOREA"
)

// semesterRank maps semesters to their position in the enum ordering.
var semesterRank = map[Semester]int{
	SemesterFirst:   0,
	SemesterSecond:  1,
	SemesterFifth:   2,
	SemesterSixth:   3,
	SemesterSeventh: 4,
}

// Rank returns the position of s in the semester ordering. Unknown
// values sort after every known one.
func (s Semester) Rank() int {
	if r, ok := semesterRank[s]; ok {
		return r
	}
	return len(semesterRank)
}
