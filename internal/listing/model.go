package listing

import (
	"strconv"
	"strings"

	humanize "github.com/dustin/go-humanize"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) Is(other Status) bool {
	return strings.EqualFold(string(s), string(other))
}

// JobTypes are the kinds of engagement an employer can pick from.
var JobTypes = []string{"Full-time", "Part-time", "Internship", "Contract"}

type Posting struct {
	ID              string `json:"id"`
	JobTitle        string `json:"jobTitle"`
	CompanyName     string `json:"companyName"`
	JobDescription  string `json:"jobDescription"`
	JobType         string `json:"jobType,omitempty"`
	StartingSalary  string `json:"startingSalary,omitempty"`
	Location        string `json:"location"`
	Skills          string `json:"skills,omitempty"`
	Category        string `json:"category,omitempty"`
	Status          Status `json:"status"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

// SkillList splits the comma-joined skills field, dropping blanks.
func (p Posting) SkillList() []string {
	return splitSkills(p.Skills)
}

// Draft is what an employer submits; the server assigns id and status.
type Draft struct {
	JobTitle       string `json:"jobTitle"`
	CompanyName    string `json:"companyName"`
	JobDescription string `json:"jobDescription"`
	JobType        string `json:"jobType,omitempty"`
	StartingSalary string `json:"startingSalary,omitempty"`
	Location       string `json:"location"`
	Skills         string `json:"skills,omitempty"`
	Category       string `json:"category,omitempty"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (d Draft) Trimmed() Draft {
	return Draft{
		JobTitle:       strings.TrimSpace(d.JobTitle),
		CompanyName:    strings.TrimSpace(d.CompanyName),
		JobDescription: strings.TrimSpace(d.JobDescription),
		JobType:        strings.TrimSpace(d.JobType),
		StartingSalary: strings.TrimSpace(d.StartingSalary),
		Location:       strings.TrimSpace(d.Location),
		Skills:         strings.TrimSpace(d.Skills),
		Category:       strings.TrimSpace(d.Category),
	}
}

func splitSkills(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Stats is the dashboard counter block.
type Stats struct {
	ActiveJobs     int `json:"activeJobs"`
	Companies      int `json:"companies"`
	StudentsPlaced int `json:"studentsPlaced"`
}

// HumanSalary adds thousands separators to a purely numeric salary and leaves
// free text ("competitive", "$20/hr") alone.
func HumanSalary(s string) string {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return s
	}
	return humanize.Comma(n)
}
