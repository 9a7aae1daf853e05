package db

import (
	"fmt"

	"github.com/pkg/errors"

	"berean-backend/internal/bible"
)

const (
	BereanPlanName  = "Berean Reading Plan"
	BereanPlanDays  = 1260
	ntBlockDays     = 30
	otCycleDays     = 365
	ntMinutesPerCh  = 4
	otMinutesPerCh  = 3
	bereanPhase1End = 360
	bereanPhase2End = 720
	bereanPhase3End = 990
)

// PhaseNames indexes phase number to display name.
var PhaseNames = map[int]string{
	1: "Gospels Foundation",
	2: "Early Church & Pauline Letters",
	3: "Acts & Corinthians",
	4: "Hebrews to Revelation",
}

type ntBlock struct {
	passages   []string
	repetition string
}

func entire(passages ...string) ntBlock {
	return ntBlock{passages: passages, repetition: RepetitionEntireBook}
}

func section(passage string) ntBlock {
	return ntBlock{passages: []string{passage}, repetition: RepetitionChapters}
}

// ntBlocks are read daily for ntBlockDays each, in order.
var ntBlocks = []ntBlock{
	// Gospels Foundation
	entire("1 John 1-5"),
	section("John 1-7"),
	section("John 8-14"),
	section("John 15-21"),
	entire("Philippians 1-4"),
	section("Mark 1-8"),
	section("Mark 9-16"),
	entire("Ephesians 1-6"),
	section("Matthew 1-7"),
	section("Matthew 8-14"),
	section("Matthew 15-21"),
	section("Matthew 22-28"),

	// Early Church & Pauline Letters
	entire("Galatians 1-6"),
	entire("Colossians 1-4"),
	section("Luke 1-6"),
	section("Luke 7-12"),
	section("Luke 13-18"),
	section("Luke 19-24"),
	entire("1 Thessalonians 1-5"),
	entire("2 Thessalonians 1-3"),
	section("Romans 1-8"),
	section("Romans 9-16"),
	entire("James 1-5"),
	entire("1 Peter 1-5"),

	// Acts & Corinthians
	section("Acts 1-7"),
	section("Acts 8-14"),
	section("Acts 15-21"),
	section("Acts 22-28"),
	section("1 Corinthians 1-8"),
	section("1 Corinthians 9-16"),
	section("2 Corinthians 1-7"),
	section("2 Corinthians 8-13"),
	section("Hebrews 1-7"),

	// Hebrews to Revelation
	section("Hebrews 8-13"),
	entire("1 Timothy 1-6"),
	entire("2 Timothy 1-4"),
	entire("Titus 1-3", "Philemon 1"),
	entire("2 Peter 1-3", "2 John 1", "3 John 1", "Jude 1"),
	section("Revelation 1-7"),
	section("Revelation 8-14"),
	section("Revelation 15-22"),
	{passages: []string{"1 John 1-5"}, repetition: RepetitionReview},
}

// PhaseForDay maps a day to its phase using the plan's boundaries. Plans
// without boundaries are a single phase.
func PhaseForDay(p *ReadingPlan, day int) int {
	ends := []*int{p.Phase1EndDay, p.Phase2EndDay, p.Phase3EndDay}
	for i, end := range ends {
		if end == nil {
			return i + 1
		}
		if day <= *end {
			return i + 1
		}
	}
	return len(ends) + 1
}

// GenerateBereanPlan builds the 1,260 day dual-track plan: one New
// Testament block repeated daily for 30 days, alongside a 365 day walk
// through the Old Testament that restarts every year.
func GenerateBereanPlan() (*ReadingPlan, error) {
	p1, p2, p3 := bereanPhase1End, bereanPhase2End, bereanPhase3End
	plan := &ReadingPlan{
		Name:         BereanPlanName,
		Description:  "A 1,260 day plan that repeats each New Testament book or section daily for 30 days while reading through the Old Testament once a year.",
		TotalDays:    BereanPlanDays,
		Phase1EndDay: &p1,
		Phase2EndDay: &p2,
		Phase3EndDay: &p3,
	}
	if len(ntBlocks)*ntBlockDays != BereanPlanDays {
		return nil, errors.Errorf("nt blocks cover %d days, want %d", len(ntBlocks)*ntBlockDays, BereanPlanDays)
	}

	blockMinutes := make([]int, len(ntBlocks))
	for i, b := range ntBlocks {
		for _, s := range b.passages {
			ref, err := bible.ParseReference(s)
			if err != nil {
				return nil, errors.Wrapf(err, "nt block %d", i+1)
			}
			blockMinutes[i] += ref.ChapterCount() * ntMinutesPerCh
		}
	}
	ot := otSchedule(otCycleDays)

	plan.DailyReadings = make([]DailyReading, 0, BereanPlanDays)
	for day := 1; day <= BereanPlanDays; day++ {
		bi := (day - 1) / ntBlockDays
		block := ntBlocks[bi]
		od := ot[(day-1)%otCycleDays]

		r := DailyReading{
			Day:                day,
			Phase:              PhaseForDay(plan, day),
			NTPassages:         append([]string(nil), block.passages...),
			NTEstimatedMinutes: blockMinutes[bi],
			NTRepetitionType:   block.repetition,
			NTRepetitionCount:  (day-1)%ntBlockDays + 1,
			OTPassages:         od.passages,
			OTEstimatedMinutes: od.chapters * otMinutesPerCh,
			OTCycle:            (day-1)/otCycleDays + 1,
		}
		r.TotalEstimatedMinutes = r.NTEstimatedMinutes + r.OTEstimatedMinutes
		plan.DailyReadings = append(plan.DailyReadings, r)
	}
	return plan, nil
}

type otDay struct {
	passages []string
	chapters int
}

// otSchedule spreads every Old Testament chapter in canonical order over
// days, as evenly as possible, folding runs in one book into a range.
func otSchedule(days int) []otDay {
	type chapter struct {
		book string
		n    int
	}
	var all []chapter
	for _, b := range bible.Books(bible.OldTestament) {
		for c := 1; c <= b.Chapters; c++ {
			all = append(all, chapter{b.Name, c})
		}
	}

	out := make([]otDay, days)
	for d := 0; d < days; d++ {
		lo, hi := d*len(all)/days, (d+1)*len(all)/days
		chs := all[lo:hi]
		var passages []string
		for i := 0; i < len(chs); {
			j := i
			for j+1 < len(chs) && chs[j+1].book == chs[i].book {
				j++
			}
			if i == j {
				passages = append(passages, fmt.Sprintf("%s %d", chs[i].book, chs[i].n))
			} else {
				passages = append(passages, fmt.Sprintf("%s %d-%d", chs[i].book, chs[i].n, chs[j].n))
			}
			i = j + 1
		}
		out[d] = otDay{passages: passages, chapters: len(chs)}
	}
	return out
}
