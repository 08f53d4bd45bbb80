package app

import "github.com/charmbracelet/lipgloss"

const linkColor = "117"

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	tabStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	tabActiveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("239")).Bold(true).Padding(0, 1)
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	bannerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true).Padding(0, 1)
	dividerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	selectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	highlightStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("221")).Bold(true)
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	disputedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	typeLabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)
	recordIDStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(linkColor))
	userBubbleStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(lipgloss.Color("236")).Padding(0, 1)
	agentBubbleStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	systemStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	debugFooterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	violationStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)

	pillStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24"))
	pillPreviewStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("238"))
	pillFocusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("16")).Background(lipgloss.Color(linkColor)).Bold(true)
	eventInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	eventErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	eventDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	eventTierStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("180")).Italic(true)
	conflictStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("130")).Bold(true)
	conflictIdleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("180"))

	modalBorderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("208")).Padding(0, 1)
	modalPaneStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	pickerBorder     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("69")).Padding(0, 1)

	noticeInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	noticeWarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("136")).Bold(true)
	noticeErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true)
)
