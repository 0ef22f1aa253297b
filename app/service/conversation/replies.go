package conversation

const (
	replyMenu = "こんにちは、採用担当アシスタントです。ご用件を番号でお選びください。\n" +
		"1. 一次面接の日程調整\n" +
		"2. 採用に関するご質問"
	replyAskDetails = "一次面接の日程調整を行います。お名前、大学名、面接の希望時期(例: 来週、今月)を教えてください。"
	replyFAQIntro   = "採用に関するご質問をどうぞ。メニューに戻るには「0」を入力してください。"
	replyFAQFooter  = "\n\n(メニューに戻るには「0」を入力してください)"
	replyAskAgain   = "承知しました。お手数ですが、お名前、大学名、面接の希望時期をもう一度教えてください。"

	replyDetailsConfirm = "以下の内容で承りました。\n" +
		"お名前: %s\n" +
		"大学名: %s\n" +
		"希望時期: %s (%s〜%s)\n" +
		"この内容で候補日程をお探しします。よろしければ何かメッセージを送ってください。修正する場合は「いいえ」と入力してください。"
	replyMissing = "%sを教えてください。"

	replyNoAvailability = "申し訳ありません、%s〜%s に空いている日程が見つかりませんでした。別の時期をお試しいただく場合は「いいえ」と入力してください。"
	replyOffer          = "次の候補日程はいかがでしょうか？番号でお選びください。\n%s"
	replyInvalidChoice  = "選択が正しくありません。1〜%d の番号で候補日程をお選びください。"
	replyBooked         = "%s で面接日程が確定しました。ありがとうございました！"
	replyAlreadyBooked  = "面接日程はすでに確定しています。他にご用件があればメニューから番号でお選びください。\n" +
		"1. 一次面接の日程調整\n" +
		"2. 採用に関するご質問"

	replyRephrase      = "すみません、うまく理解できませんでした。もう一度入力していただけますか？"
	replyInternalError = "申し訳ありません、内部エラーが発生しました。もう一度お試しください。"
	replyBusy          = "前のメッセージを処理中です。少し待ってからもう一度お試しください。"

	notifyBody = "一次面接の日程が確定しました。\n\n" +
		"氏名: %s\n" +
		"大学: %s\n" +
		"日時: %s\n"
)

var fieldLabels = map[string]string{
	"name":       "お名前",
	"university": "大学名",
	"date":       "面接の希望時期(例: 来週、今月、来月)",
}
