package workflow

// ── 学生端视图 ──

// 学生端展示模式
const (
	ModeCTA      = "cta"      // 可发起新的提交周期
	ModeProgress = "progress" // 只读进度展示
)

// 横幅类型
const (
	BannerRejected  = "rejected"
	BannerCompleted = "completed"
)

// DefaultRejectionMessage 管理员未填写回复时的驳回文案
const DefaultRejectionMessage = "Your submission could not be processed. Please check your details and resubmit."

// StudentView 学生端应渲染的内容
type StudentView struct {
	Status    Status  `json:"status"`
	Mode      string  `json:"mode"`
	CanSubmit bool    `json:"can_submit"`
	CTA       *CTA    `json:"cta,omitempty"`
	Steps     []Step  `json:"steps"`
	Banner    *Banner `json:"banner,omitempty"`
}

// CTA 行动号召卡片
type CTA struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Button string `json:"button"`
}

// Step 进度时间线节点
type Step struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Current   bool   `json:"current"`
}

// Banner 驳回 / 完成提示
type Banner struct {
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
	Link    string `json:"link,omitempty"`
}

var timeline = []struct {
	name     string
	statuses []Status
}{
	{"Payment Received", []Status{StatusPaid, StatusProcessing, StatusVerified, StatusUploaded}},
	{"Admin Verified Details", []Status{StatusVerified, StatusUploaded}},
	{"TMA Uploaded to NIOS", []Status{StatusUploaded}},
}

// ProjectStudent 根据当前状态与管理员字段推导学生端视图
func ProjectStudent(status Status, adminReply, adminProofLink string) StudentView {
	v := StudentView{
		Status:    status,
		CanSubmit: CanOpenCycle(status),
		Steps:     buildSteps(status),
	}

	if v.CanSubmit {
		v.Mode = ModeCTA
		v.CTA = buildCTA(status)
	} else {
		v.Mode = ModeProgress
	}

	switch status {
	case StatusRejected:
		msg := adminReply
		if msg == "" {
			msg = DefaultRejectionMessage
		}
		v.Banner = &Banner{Kind: BannerRejected, Title: "Submission Rejected", Message: msg}
	case StatusUploaded:
		v.Banner = &Banner{
			Kind:    BannerCompleted,
			Title:   "Congratulations! Your TMA is Uploaded.",
			Message: adminReply,
			Link:    adminProofLink,
		}
	}

	return v
}

func buildSteps(status Status) []Step {
	steps := make([]Step, len(timeline))
	for i, t := range timeline {
		done := contains(t.statuses, status)
		next := i+1 < len(timeline) && contains(timeline[i+1].statuses, status)
		steps[i] = Step{Name: t.name, Completed: done, Current: done && !next}
	}
	return steps
}

func buildCTA(status Status) *CTA {
	if status == StatusRejected {
		return &CTA{
			Title:  "Resubmit Your TMA",
			Body:   "There was an issue with your previous submission. Please click below to correct your details and resubmit.",
			Button: "Resubmit Form",
		}
	}
	return &CTA{
		Title:  "Get Started with Your TMA Submission",
		Body:   "Provide your details and complete the payment to get your Tutor Marked Assignments uploaded by our experts.",
		Button: "Submit TMA Now",
	}
}

// ── 管理端视图 ──

// AdminView 管理端单行可用操作
type AdminView struct {
	Status           Status   `json:"status"`
	NextActions      []Action `json:"next_actions"`
	SettableStatuses []Status `json:"settable_statuses"`
}

// ProjectAdmin 推导管理端可执行的常规动作；强制设置始终可选全部六个状态
func ProjectAdmin(status Status) AdminView {
	all := make([]Status, len(AllStatuses))
	copy(all, AllStatuses)
	return AdminView{
		Status:           status,
		NextActions:      NextActions(status),
		SettableStatuses: all,
	}
}
