package course

// Progress summarizes a course for presentation.
type Progress struct {
	CourseID         string `json:"course_id"`
	DayNumber        int    `json:"day_number"`
	DaysCompleted    int    `json:"days_completed"`
	NumSentencesSeen int    `json:"num_sentences_seen"`
	TotalReps        int    `json:"total_reps"`
	Cursor           int    `json:"cursor"`
	ReviewsLeft      int    `json:"reviews_left"`
	Finished         bool   `json:"finished"`
}

// NumSentencesSeen counts the sentences introduced on archived days plus those of the
// current day once completed. Only the set introduced on each day counts, so reviews
// are never counted twice.
func (c *Course) NumSentencesSeen() int {
	seen := 0
	for _, d := range c.pastDays {
		seen += d.NewSentenceCount()
	}
	if c.currentDay != nil && c.currentDay.completed {
		seen += c.currentDay.NewSentenceCount()
	}
	return seen
}

// TotalReps returns the repetition counter plus reviews already done on an
// unfinished current day.
func (c *Course) TotalReps() int {
	total := c.numReps
	if c.currentDay != nil && !c.currentDay.completed {
		total += c.currentDay.TotalReviews() - c.currentDay.ReviewsLeft()
	}
	return total
}

// Progress returns the course summary.
func (c *Course) Progress() Progress {
	p := Progress{
		CourseID:         c.id,
		DayNumber:        c.DayNumber(),
		DaysCompleted:    len(c.pastDays),
		NumSentencesSeen: c.NumSentencesSeen(),
		TotalReps:        c.TotalReps(),
		Cursor:           c.schedule.Cursor(),
		Finished:         c.IsFinished(),
	}
	if c.currentDay != nil {
		if c.currentDay.completed {
			p.DaysCompleted++
		} else {
			p.ReviewsLeft = c.currentDay.ReviewsLeft()
		}
	}
	return p
}
