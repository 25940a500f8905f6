package progress

import (
	"math"
	"time"

	"lms/database"
	courseModels "lms/models/course"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ModuleProgress is the derived completion state of one module for one user.
type ModuleProgress struct {
	ModuleID   uint `json:"module_id"`
	Completed  int  `json:"completed"`
	Total      int  `json:"total"`
	Percentage int  `json:"percentage"`
	IsComplete bool `json:"is_complete"`
}

// CourseProgress is the derived completion state of the whole course.
type CourseProgress struct {
	CompletedModules int  `json:"completed_modules"`
	TotalModules     int  `json:"total_modules"`
	CompletedLessons int  `json:"completed_lessons"`
	TotalLessons     int  `json:"total_lessons"`
	Percentage       int  `json:"percentage"`
	IsComplete       bool `json:"is_complete"`
}

// NextLesson identifies the first incomplete lesson for resume.
type NextLesson struct {
	LessonID    uint   `json:"lesson_id"`
	Title       string `json:"title"`
	OrderIndex  int    `json:"order_index"`
	ModuleID    uint   `json:"module_id"`
	ModuleTitle string `json:"module_title"`
	ModuleOrder int    `json:"module_order"`
}

// ModuleWithProgress is the dashboard payload: a module, its lessons, and the
// user's derived unlock/completion state.
type ModuleWithProgress struct {
	courseModels.Module
	Lessons    []LessonWithState `json:"lessons"`
	Progress   ModuleProgress    `json:"progress"`
	IsUnlocked bool              `json:"is_unlocked"`
}

type LessonWithState struct {
	ID            uint   `json:"id"`
	Title         string `json:"title"`
	OrderIndex    int    `json:"order_index"`
	IsFree        bool   `json:"is_free"`
	VideoDuration int    `json:"video_duration"`
	IsComplete    bool   `json:"is_complete"`
}

// MarkComplete upserts the (user, lesson) progress row as completed.
// Idempotent: repeated calls converge to the same row state.
func MarkComplete(userID, lessonID uint) error {
	now := time.Now()
	row := courseModels.LessonProgress{
		UserID:      userID,
		LessonID:    lessonID,
		Completed:   true,
		CompletedAt: &now,
	}
	return database.Database.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"completed": true, "completed_at": now, "updated_at": now}),
	}).Create(&row).Error
}

// MarkIncomplete undoes a completion. The row is kept, not deleted.
func MarkIncomplete(userID, lessonID uint) error {
	now := time.Now()
	row := courseModels.LessonProgress{
		UserID:   userID,
		LessonID: lessonID,
	}
	return database.Database.Db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"completed": false, "completed_at": nil, "updated_at": now}),
	}).Create(&row).Error
}

// GetLessonProgress returns the progress row for (user, lesson), nil if none.
func GetLessonProgress(userID, lessonID uint) (*courseModels.LessonProgress, error) {
	var row courseModels.LessonProgress
	err := database.Database.Db.Where("user_id = ? AND lesson_id = ?", userID, lessonID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// completedLessonIDs returns the set of lesson IDs the user has completed.
func completedLessonIDs(userID uint) (map[uint]bool, error) {
	var ids []uint
	err := database.Database.Db.Model(&courseModels.LessonProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Pluck("lesson_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func publishedLessons(moduleID uint) ([]courseModels.Lesson, error) {
	var lessons []courseModels.Lesson
	err := database.Database.Db.
		Where("module_id = ? AND is_published = ? AND is_deleted = ?", moduleID, true, false).
		Order("order_index asc").
		Find(&lessons).Error
	return lessons, err
}

func publishedModules() ([]courseModels.Module, error) {
	var modules []courseModels.Module
	err := database.Database.Db.
		Where("is_published = ? AND is_deleted = ?", true, false).
		Order("order_index asc").
		Find(&modules).Error
	return modules, err
}

func percent(completed, total int) int {
	if total == 0 {
		return 100
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// ModuleProgressFor computes the user's progress in one module. A module with
// zero published lessons counts as complete so it never blocks unlocking.
func ModuleProgressFor(userID, moduleID uint) (ModuleProgress, error) {
	lessons, err := publishedLessons(moduleID)
	if err != nil {
		return ModuleProgress{}, err
	}

	total := len(lessons)
	if total == 0 {
		return ModuleProgress{ModuleID: moduleID, Completed: 0, Total: 0, Percentage: 100, IsComplete: true}, nil
	}

	completedSet, err := completedLessonIDs(userID)
	if err != nil {
		return ModuleProgress{}, err
	}

	completed := 0
	for _, l := range lessons {
		if completedSet[l.ID] {
			completed++
		}
	}

	return ModuleProgress{
		ModuleID:   moduleID,
		Completed:  completed,
		Total:      total,
		Percentage: percent(completed, total),
		IsComplete: completed >= total,
	}, nil
}

// IsModuleComplete reports whether the user has finished every published
// lesson in the module.
func IsModuleComplete(userID, moduleID uint) (bool, error) {
	p, err := ModuleProgressFor(userID, moduleID)
	if err != nil {
		return false, err
	}
	return p.IsComplete, nil
}

// CourseProgressFor aggregates progress over all published modules.
func CourseProgressFor(userID uint) (CourseProgress, error) {
	modules, err := publishedModules()
	if err != nil {
		return CourseProgress{}, err
	}

	totalModules := len(modules)
	if totalModules == 0 {
		return CourseProgress{}, nil
	}

	completedSet, err := completedLessonIDs(userID)
	if err != nil {
		return CourseProgress{}, err
	}

	result := CourseProgress{TotalModules: totalModules}
	for _, m := range modules {
		lessons, err := publishedLessons(m.ID)
		if err != nil {
			return CourseProgress{}, err
		}

		moduleCompleted := 0
		for _, l := range lessons {
			if completedSet[l.ID] {
				moduleCompleted++
			}
		}

		result.TotalLessons += len(lessons)
		result.CompletedLessons += moduleCompleted
		if len(lessons) == 0 || moduleCompleted >= len(lessons) {
			result.CompletedModules++
		}
	}

	if result.TotalLessons > 0 {
		result.Percentage = percent(result.CompletedLessons, result.TotalLessons)
	}
	result.IsComplete = result.TotalModules > 0 && result.CompletedModules >= result.TotalModules

	return result, nil
}

// UnlockedModuleIDs returns the ordered prefix of published modules the user
// may view. Module 1 is always unlocked; module N requires module N-1 to be
// unlocked and complete. Iteration halts at the first locked module, so the
// result never has holes.
func UnlockedModuleIDs(userID uint) ([]uint, error) {
	modules, err := publishedModules()
	if err != nil {
		return nil, err
	}

	completedSet, err := completedLessonIDs(userID)
	if err != nil {
		return nil, err
	}

	var unlocked []uint
	previousComplete := true
	for _, m := range modules {
		if !previousComplete {
			break
		}
		unlocked = append(unlocked, m.ID)

		lessons, err := publishedLessons(m.ID)
		if err != nil {
			return nil, err
		}
		completed := 0
		for _, l := range lessons {
			if completedSet[l.ID] {
				completed++
			}
		}
		previousComplete = len(lessons) == 0 || completed >= len(lessons)
	}

	return unlocked, nil
}

// IsModuleUnlocked reports whether one module is in the user's unlocked set.
// Unknown modules are locked (fail closed).
func IsModuleUnlocked(userID, moduleID uint) (bool, error) {
	var module courseModels.Module
	err := database.Database.Db.
		Where("id = ? AND is_deleted = ?", moduleID, false).
		First(&module).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	unlocked, err := UnlockedModuleIDs(userID)
	if err != nil {
		return false, err
	}
	for _, id := range unlocked {
		if id == moduleID {
			return true, nil
		}
	}
	return false, nil
}

// IsLessonAccessible checks module gating only; subscription gating is the
// access engine's job. Free lessons skip the subscription check but still
// require the module to be reachable, and a missing lesson is not accessible.
func IsLessonAccessible(userID, lessonID uint) (bool, error) {
	var lesson courseModels.Lesson
	err := database.Database.Db.
		Where("id = ? AND is_deleted = ?", lessonID, false).
		First(&lesson).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if lesson.IsFree {
		return true, nil
	}

	return IsModuleUnlocked(userID, lesson.ModuleID)
}

// WouldCompleteLessonCompleteModule is a look-ahead used before committing a
// completion write: would completing this lesson finish its module? The
// lesson itself is excluded from the current count. Callers must run this
// before MarkComplete; nothing enforces that ordering.
func WouldCompleteLessonCompleteModule(userID, lessonID uint) (bool, uint, error) {
	var lesson courseModels.Lesson
	err := database.Database.Db.
		Where("id = ? AND is_deleted = ?", lessonID, false).
		First(&lesson).Error
	if err == gorm.ErrRecordNotFound {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	lessons, err := publishedLessons(lesson.ModuleID)
	if err != nil {
		return false, 0, err
	}
	total := len(lessons)

	completedSet, err := completedLessonIDs(userID)
	if err != nil {
		return false, 0, err
	}

	completed := 0
	for _, l := range lessons {
		if l.ID != lessonID && completedSet[l.ID] {
			completed++
		}
	}

	return completed+1 >= total, lesson.ModuleID, nil
}

// WouldCompleteModuleCompleteCourse is the course-level look-ahead: treat the
// named module as complete regardless of stored state and check whether every
// published module would then be complete.
func WouldCompleteModuleCompleteCourse(userID, moduleID uint) (bool, error) {
	modules, err := publishedModules()
	if err != nil {
		return false, err
	}
	if len(modules) == 0 {
		return false, nil
	}

	completedSet, err := completedLessonIDs(userID)
	if err != nil {
		return false, err
	}

	completedModules := 0
	for _, m := range modules {
		if m.ID == moduleID {
			completedModules++
			continue
		}

		lessons, err := publishedLessons(m.ID)
		if err != nil {
			return false, err
		}
		if len(lessons) == 0 {
			completedModules++
			continue
		}

		completed := 0
		for _, l := range lessons {
			if completedSet[l.ID] {
				completed++
			}
		}
		if completed >= len(lessons) {
			completedModules++
		}
	}

	return completedModules >= len(modules), nil
}

// NextIncompleteLesson finds the first incomplete published lesson in module
// order, for "resume where you left off". Nil when everything is complete.
func NextIncompleteLesson(userID uint) (*NextLesson, error) {
	modules, err := publishedModules()
	if err != nil {
		return nil, err
	}

	completedSet, err := completedLessonIDs(userID)
	if err != nil {
		return nil, err
	}

	for _, m := range modules {
		lessons, err := publishedLessons(m.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range lessons {
			if !completedSet[l.ID] {
				return &NextLesson{
					LessonID:    l.ID,
					Title:       l.Title,
					OrderIndex:  l.OrderIndex,
					ModuleID:    m.ID,
					ModuleTitle: m.Title,
					ModuleOrder: m.OrderIndex,
				}, nil
			}
		}
	}

	return nil, nil
}

// ModulesWithProgress returns every published module with lessons, progress
// and unlock state, in order. Unlock state follows the same prefix rule as
// UnlockedModuleIDs but modules past the first locked one are still listed.
func ModulesWithProgress(userID uint) ([]ModuleWithProgress, error) {
	modules, err := publishedModules()
	if err != nil {
		return nil, err
	}

	completedSet, err := completedLessonIDs(userID)
	if err != nil {
		return nil, err
	}

	result := make([]ModuleWithProgress, 0, len(modules))
	previousComplete := true
	for _, m := range modules {
		lessons, err := publishedLessons(m.ID)
		if err != nil {
			return nil, err
		}

		entry := ModuleWithProgress{Module: m, IsUnlocked: previousComplete}
		completed := 0
		for _, l := range lessons {
			done := completedSet[l.ID]
			if done {
				completed++
			}
			entry.Lessons = append(entry.Lessons, LessonWithState{
				ID:            l.ID,
				Title:         l.Title,
				OrderIndex:    l.OrderIndex,
				IsFree:        l.IsFree,
				VideoDuration: l.VideoDuration,
				IsComplete:    done,
			})
		}

		entry.Progress = ModuleProgress{
			ModuleID:   m.ID,
			Completed:  completed,
			Total:      len(lessons),
			Percentage: percent(completed, len(lessons)),
			IsComplete: len(lessons) == 0 || completed >= len(lessons),
		}

		result = append(result, entry)

		if previousComplete {
			previousComplete = entry.Progress.IsComplete
		}
	}

	return result, nil
}
