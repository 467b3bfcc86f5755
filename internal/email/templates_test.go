package email

import (
	"strings"
	"testing"
)

func TestRenderFollowUpEscapesAndSplitsParagraphs(t *testing.T) {
	html, err := renderFollowUp("Amira", "", "Hello there.\n\n<script>x</script>\n\n\nSee you soon.")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("expected draft text to be escaped")
	}
	if strings.Count(html, `<p style="line-height:1.5;">`) != 3 {
		t.Fatalf("expected three paragraphs, got:\n%s", html)
	}
	if !strings.Contains(html, subjectFollowUp) {
		t.Fatal("expected default subject as heading")
	}
}

func TestRenderTaskAssigned(t *testing.T) {
	html, err := renderEmailTemplate("task_assigned.html", taskAssignedEmailData{
		baseEmailData: baseEmailData{Title: "New follow-up task", Heading: "Call hot lead"},
		Task:          TaskNotice{CounselorName: "Sam", StudentName: "Amira", Priority: "urgent", DueDate: "2026-05-10"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Hi Sam", "<strong>urgent</strong>", "Amira", "2026-05-10"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in output", want)
		}
	}
}

func TestRenderTaskAssignedEscapesDescription(t *testing.T) {
	html, err := renderEmailTemplate("task_assigned.html", taskAssignedEmailData{
		baseEmailData: baseEmailData{Title: "New follow-up task", Heading: "Follow up"},
		Task:          TaskNotice{CounselorName: "Sam", StudentName: "Amira", Description: "IELTS <7 & <script>x</script>"},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatal("expected the description to be escaped")
	}
	if !strings.Contains(html, "IELTS &lt;7 &amp; &lt;script&gt;") {
		t.Fatalf("expected escaped description in output:\n%s", html)
	}
}
