package batch

import "time"

// Job names a scheduled attendance job.
type Job string

const (
	JobMarkAbsent               Job = "mark-absent"
	JobCreateLeaveDayAttendance Job = "create-leave-attendance"
	JobAutoCompleteClockOut     Job = "auto-complete-clock-out"
	JobAccrueAnnualLeave        Job = "annual-leave-accrual"
	JobAccrueAnniversaryLeave   Job = "anniversary-leave-accrual"
)

// AllJobs lists the jobs in their documented daily order.
var AllJobs = []Job{
	JobMarkAbsent,
	JobCreateLeaveDayAttendance,
	JobAutoCompleteClockOut,
	JobAccrueAnnualLeave,
	JobAccrueAnniversaryLeave,
}

func ParseJob(s string) (Job, error) {
	for _, j := range AllJobs {
		if string(j) == s {
			return j, nil
		}
	}
	return "", ErrUnknownJob
}

// DefaultDate returns the date a job processes when triggered at now:
// yesterday for jobs that close out a finished day, today otherwise.
func (j Job) DefaultDate(now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch j {
	case JobMarkAbsent, JobAutoCompleteClockOut:
		return today.AddDate(0, 0, -1)
	}
	return today
}

// Result counts what one job run did.
type Result struct {
	Job       Job    `json:"job"`
	Date      string `json:"date"`
	Processed int    `json:"processed"`
	Succeeded int    `json:"succeeded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}
