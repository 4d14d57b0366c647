package engine

import "testing"

func TestClassify_Scenario(t *testing.T) {
	e := setupTestEngine(t)
	snap := testSnapshot()
	date := day(2025, 2, 24)
	occ := e.OccurrencesOn(snap, date)

	// 08:30 高数（08:00-09:40）进行中
	agenda := e.Classify(occ, date, at(2025, 2, 24, 8, 30))
	if agenda.Current == nil || agenda.Current.Course.Name != "高等数学" {
		t.Fatalf("08:30 期望当前课程为高等数学，实际=%+v", agenda.Current)
	}
	if len(agenda.Upcoming) != 1 || len(agenda.Finished) != 0 {
		t.Errorf("08:30 期望 1 门未开始、0 门已结束，实际 upcoming=%d finished=%d", len(agenda.Upcoming), len(agenda.Finished))
	}

	// 09:00 仍在第2节内（08:55-09:40）
	agenda = e.Classify(occ, date, at(2025, 2, 24, 9, 0))
	if agenda.Current == nil || agenda.Current.Course.Name != "高等数学" {
		t.Errorf("09:00 期望高等数学进行中，实际=%+v", agenda.Current)
	}
	if len(agenda.Finished) != 0 {
		t.Errorf("09:00 期望 0 门已结束，实际=%d", len(agenda.Finished))
	}

	// 09:45 第2节已于 09:40 结束
	agenda = e.Classify(occ, date, at(2025, 2, 24, 9, 45))
	if agenda.Current != nil {
		t.Errorf("09:45 不应有进行中课程，实际=%s", agenda.Current.Course.Name)
	}
	if len(agenda.Finished) != 1 || agenda.Finished[0].Course.Name != "高等数学" {
		t.Errorf("09:45 期望高等数学已结束")
	}

	// 07:00 全部未开始
	agenda = e.Classify(occ, date, at(2025, 2, 24, 7, 0))
	if agenda.Current != nil || len(agenda.Upcoming) != 2 {
		t.Errorf("07:00 期望 2 门未开始，实际=%d", len(agenda.Upcoming))
	}
}

func TestClassify_BoundaryInstants(t *testing.T) {
	e := setupTestEngine(t)
	snap := testSnapshot()
	date := day(2025, 2, 24)
	occ := e.OccurrencesOn(snap, date)

	// start <= now：开始时刻即进行中
	agenda := e.Classify(occ, date, at(2025, 2, 24, 8, 0))
	if agenda.Current == nil {
		t.Error("08:00 整点应为进行中")
	}
	// now >= end：结束时刻即已结束
	agenda = e.Classify(occ, date, at(2025, 2, 24, 9, 40))
	if agenda.Current != nil || len(agenda.Finished) != 1 {
		t.Error("09:40 整点应为已结束")
	}
}

func TestClassify_OtherDays(t *testing.T) {
	e := setupTestEngine(t)
	snap := testSnapshot()
	date := day(2025, 2, 24)
	occ := e.OccurrencesOn(snap, date)

	// 前一天查看：全部未开始，即便时刻晚于课程结束
	agenda := e.Classify(occ, date, at(2025, 2, 23, 23, 0))
	if len(agenda.Upcoming) != 2 || agenda.Current != nil || len(agenda.Finished) != 0 {
		t.Errorf("未来日期期望全部未开始，实际 upcoming=%d", len(agenda.Upcoming))
	}

	// 第二天查看：全部已结束，即便时刻早于课程开始
	agenda = e.Classify(occ, date, at(2025, 2, 25, 7, 0))
	if len(agenda.Finished) != 2 || agenda.Current != nil || len(agenda.Upcoming) != 0 {
		t.Errorf("过去日期期望全部已结束，实际 finished=%d", len(agenda.Finished))
	}
}

func TestClassify_SkipsOutOfRangeSections(t *testing.T) {
	e := setupTestEngine(t)
	snap := NewScheduleSnapshot(day(2025, 2, 23), []Course{
		{Name: "越界", Sessions: []Session{NewSession(Monday, 9, 12, []int{1}, nil)}},
		{Name: "倒置", Sessions: []Session{NewSession(Monday, 4, 3, []int{1}, nil)}},
		{Name: "正常", Sessions: []Session{NewSession(Monday, 1, 2, []int{1}, nil)}},
	})
	date := day(2025, 2, 24)

	agenda := e.Agenda(snap, date, at(2025, 2, 24, 7, 0))
	if agenda.Skipped != 2 {
		t.Errorf("期望跳过 2 门，实际=%d", agenda.Skipped)
	}
	if len(agenda.Upcoming) != 1 || agenda.Upcoming[0].Course.Name != "正常" {
		t.Error("坏数据不应影响正常课程")
	}
}

func TestClassify_ConcurrentSessions(t *testing.T) {
	e := setupTestEngine(t)
	snap := NewScheduleSnapshot(day(2025, 2, 23), []Course{
		{Name: "长课", Sessions: []Session{NewSession(Monday, 1, 4, []int{1}, nil)}},
		{Name: "短课", Sessions: []Session{NewSession(Monday, 2, 2, []int{1}, nil)}},
	})

	agenda := e.Agenda(snap, day(2025, 2, 24), at(2025, 2, 24, 9, 0))
	if agenda.Current == nil || agenda.Current.Course.Name != "长课" {
		t.Fatalf("期望节次靠前的长课为当前课程")
	}
	if len(agenda.Concurrent) != 1 || agenda.Concurrent[0].Course.Name != "短课" {
		t.Errorf("期望短课进入 Concurrent，实际=%d", len(agenda.Concurrent))
	}
}

func TestClassify_Partition(t *testing.T) {
	e := setupTestEngine(t)
	snap := testSnapshot()
	date := day(2025, 2, 24)
	occ := e.OccurrencesOn(snap, date)

	for minute := 6 * 60; minute <= 22*60; minute += 5 {
		now := at(2025, 2, 24, minute/60, minute%60)
		agenda := e.Classify(occ, date, now)

		seen := make(map[*Session]int)
		for _, o := range agenda.Finished {
			seen[o.Session]++
		}
		for _, o := range agenda.Upcoming {
			seen[o.Session]++
		}
		for _, o := range agenda.Concurrent {
			seen[o.Session]++
		}
		if agenda.Current != nil {
			seen[agenda.Current.Session]++
		}
		if len(seen) != len(occ) {
			t.Fatalf("%s 划分后数量不一致: %d != %d", now.Format("15:04"), len(seen), len(occ))
		}
		for s, n := range seen {
			if n != 1 {
				t.Fatalf("%s 课程重复出现 %d 次: %+v", now.Format("15:04"), n, s)
			}
		}
	}
}

func TestClassify_UpcomingSorted(t *testing.T) {
	e := setupTestEngine(t)
	course := &Course{Name: "测试"}
	late := NewSession(Monday, 7, 8, []int{1}, nil)
	early := NewSession(Monday, 3, 4, []int{1}, nil)
	date := day(2025, 2, 24)
	occ := []Occurrence{
		{Date: date, Course: course, Session: &late},
		{Date: date, Course: course, Session: &early},
	}

	agenda := e.Classify(occ, date, at(2025, 2, 24, 7, 0))
	if len(agenda.Upcoming) != 2 || agenda.Upcoming[0].Session.StartSection != 3 {
		t.Error("upcoming 应按节次升序")
	}
}
