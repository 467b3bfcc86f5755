package adapters

import (
	"context"

	appsrepo "consultancy_backend/internal/applications/repository"
	"consultancy_backend/internal/automation/evaluator"
	docsrepo "consultancy_backend/internal/documents/repository"
	scoringrepo "consultancy_backend/internal/scoring/repository"
	studentsrepo "consultancy_backend/internal/students/repository"
	tasksrepo "consultancy_backend/internal/tasks/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const documentStatusPending = "pending"

// PendingTaskLister lists open tasks.
type PendingTaskLister interface {
	ListPending(ctx context.Context) ([]tasksrepo.Task, error)
}

// AutomationSnapshotLoader bulk-loads the state an automation run evaluates.
// Collections are read concurrently; each read keeps storage order.
type AutomationSnapshotLoader struct {
	students     *studentsrepo.Repository
	applications *appsrepo.Repository
	documents    *docsrepo.Repository
	scores       *scoringrepo.Repository
	tasks        PendingTaskLister
}

func NewAutomationSnapshotLoader(
	students *studentsrepo.Repository,
	applications *appsrepo.Repository,
	documents *docsrepo.Repository,
	scores *scoringrepo.Repository,
	tasks PendingTaskLister,
) *AutomationSnapshotLoader {
	return &AutomationSnapshotLoader{
		students:     students,
		applications: applications,
		documents:    documents,
		scores:       scores,
		tasks:        tasks,
	}
}

func (l *AutomationSnapshotLoader) Load(ctx context.Context) (evaluator.Snapshot, error) {
	var (
		students []studentsrepo.Student
		comms    []studentsrepo.Communication
		apps     []appsrepo.Application
		docs     []docsrepo.Document
		scores   []scoringrepo.LeadScore
		pending  []tasksrepo.Task
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		students, err = l.students.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		comms, err = l.students.ListLatestCommunications(gctx)
		return err
	})
	g.Go(func() (err error) {
		apps, err = l.applications.List(gctx, appsrepo.ListParams{})
		return err
	})
	g.Go(func() (err error) {
		docs, err = l.documents.List(gctx, nil, documentStatusPending)
		return err
	})
	g.Go(func() (err error) {
		scores, err = l.scores.List(gctx, "", 0)
		return err
	})
	g.Go(func() (err error) {
		pending, err = l.tasks.ListPending(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return evaluator.Snapshot{}, err
	}

	return BuildSnapshot(students, comms, apps, docs, scores, pending), nil
}

// BuildSnapshot maps stored records to the evaluator's view.
func BuildSnapshot(
	students []studentsrepo.Student,
	comms []studentsrepo.Communication,
	apps []appsrepo.Application,
	docs []docsrepo.Document,
	scores []scoringrepo.LeadScore,
	pending []tasksrepo.Task,
) evaluator.Snapshot {
	snap := evaluator.Snapshot{
		Students:             make([]evaluator.Student, 0, len(students)),
		Applications:         make([]evaluator.Application, 0, len(apps)),
		Documents:            make([]evaluator.Document, 0, len(docs)),
		LatestCommunications: make(map[uuid.UUID]evaluator.Communication, len(comms)),
		Scores:               make(map[uuid.UUID]evaluator.Score, len(scores)),
		PendingKeys:          make(map[string]struct{}, len(pending)),
	}

	for _, s := range students {
		snap.Students = append(snap.Students, evaluator.Student{
			ID:          s.ID,
			Name:        s.FullName(),
			Email:       deref(s.Email),
			Status:      s.Status,
			CounselorID: s.CounselorID,
		})
	}
	for _, c := range comms {
		snap.LatestCommunications[c.StudentID] = evaluator.Communication{
			ID:         c.ID,
			StudentID:  c.StudentID,
			Channel:    c.Channel,
			OccurredAt: c.OccurredAt,
		}
	}
	for _, a := range apps {
		snap.Applications = append(snap.Applications, evaluator.Application{
			ID:             a.ID,
			StudentID:      a.StudentID,
			UniversityName: a.UniversityName,
			CourseName:     deref(a.CourseName),
			Status:         a.Status,
			Deadline:       a.CourseDeadline,
		})
	}
	for _, d := range docs {
		snap.Documents = append(snap.Documents, evaluator.Document{
			ID:           d.ID,
			StudentID:    d.StudentID,
			DocumentType: d.DocumentType,
			FileName:     d.FileName,
			Status:       d.Status,
			UploadedAt:   d.UploadedAt,
		})
	}
	for _, s := range scores {
		snap.Scores[s.StudentID] = evaluator.Score{Total: s.TotalScore, Tier: s.Tier}
	}
	for _, t := range pending {
		if t.IdempotencyKey != nil {
			snap.PendingKeys[*t.IdempotencyKey] = struct{}{}
		}
	}
	return snap
}
